// Package config loads server configuration from YAML with sane live
// defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tracksync/tracksync/internal/core/osc"
)

// Duration decodes YAML scalars like "30s" or "1m" via time.ParseDuration.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Unmatched-address policies for the control server.
const (
	UnmatchedDrop = "drop"
	UnmatchedLog  = "log"
)

type EngineConfig struct {
	TickRate      int      `yaml:"tick_rate"`
	HistoryLimit  int      `yaml:"history_limit"`
	AutosaveEvery Duration `yaml:"autosave_every"`
}

type ControlConfig struct {
	osc.Config `yaml:",inline"`
	// Unmatched selects what happens to messages no handler matches.
	Unmatched string `yaml:"unmatched"`
}

type BroadcastConfig struct {
	Enabled    bool `yaml:"enabled"`
	osc.Config `yaml:",inline"`
}

type MonitorConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type Config struct {
	LogLevel  string          `yaml:"log_level"`
	Engine    EngineConfig    `yaml:"engine"`
	Control   ControlConfig   `yaml:"control"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
	Monitor   MonitorConfig   `yaml:"monitor"`
	Store     StoreConfig     `yaml:"store"`
}

// Default returns the stock live setup: control in on 9000, broadcast out
// on 9001, monitor on 9002.
func Default() Config {
	return Config{
		LogLevel: "info",
		Engine: EngineConfig{
			TickRate:      60,
			HistoryLimit:  600,
			AutosaveEvery: Duration(30 * time.Second),
		},
		Control: ControlConfig{
			Config:    osc.Config{Host: "0.0.0.0", Port: 9000, Protocol: osc.UDP},
			Unmatched: UnmatchedDrop,
		},
		Broadcast: BroadcastConfig{
			Enabled: true,
			Config:  osc.Config{Host: "127.0.0.1", Port: 9001, Protocol: osc.UDP},
		},
		Monitor: MonitorConfig{
			Enabled: true,
			Addr:    "127.0.0.1:9002",
		},
		Store: StoreConfig{
			Path: "data/snapshot.json",
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults untouched.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Engine.TickRate <= 0 || c.Engine.TickRate > 1000 {
		return fmt.Errorf("tick_rate %d outside (0, 1000]", c.Engine.TickRate)
	}
	if c.Engine.HistoryLimit < 0 {
		return fmt.Errorf("history_limit %d must not be negative", c.Engine.HistoryLimit)
	}
	if err := c.Control.Config.Validate(); err != nil {
		return fmt.Errorf("control: %w", err)
	}
	switch c.Control.Unmatched {
	case UnmatchedDrop, UnmatchedLog:
	default:
		return fmt.Errorf("control.unmatched %q must be %q or %q",
			c.Control.Unmatched, UnmatchedDrop, UnmatchedLog)
	}
	if c.Broadcast.Enabled {
		if err := c.Broadcast.Config.Validate(); err != nil {
			return fmt.Errorf("broadcast: %w", err)
		}
	}
	if c.Monitor.Enabled && c.Monitor.Addr == "" {
		return fmt.Errorf("monitor.addr must be set when the monitor is enabled")
	}
	return nil
}
