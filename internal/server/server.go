// Package server assembles the full animation server from configuration:
// control input, the tick engine, outbound broadcast, the monitor endpoint
// and snapshot persistence.
package server

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tracksync/tracksync/internal/config"
	"github.com/tracksync/tracksync/internal/core/engine"
	"github.com/tracksync/tracksync/internal/core/observability/log"
	"github.com/tracksync/tracksync/internal/core/osc"
	"github.com/tracksync/tracksync/internal/core/state"
	"github.com/tracksync/tracksync/internal/monitor"
	"github.com/tracksync/tracksync/internal/store"
)

type Server struct {
	cfg    config.Config
	logger log.Log

	engine  *engine.Engine
	monitor *monitor.Server
	store   state.Store
}

func NewServer(cfg config.Config, logger log.Log) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Provide()
	}
	logger.SetLevel(log.ParseLevel(cfg.LogLevel))

	serverOpts := []osc.ServerOption{osc.WithServerLogger(logger)}
	if cfg.Control.Unmatched == config.UnmatchedLog {
		serverOpts = append(serverOpts, osc.WithDefaultHandler(func(m osc.Message) error {
			logger.Info("unhandled control message", log.String("address", m.Address))
			return nil
		}))
	}
	control, err := osc.NewServer(cfg.Control.Config, serverOpts...)
	if err != nil {
		return nil, err
	}

	var client osc.Client
	if cfg.Broadcast.Enabled {
		client, err = osc.NewClient(cfg.Broadcast.Config, osc.WithClientLogger(logger))
		if err != nil {
			return nil, err
		}
	}

	var snaps state.Store
	if cfg.Store.Path != "" {
		snaps, err = store.NewFileStore(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
	}

	eng := engine.New(engine.Options{
		TickRate:      cfg.Engine.TickRate,
		HistoryLimit:  cfg.Engine.HistoryLimit,
		Client:        client,
		Server:        control,
		Store:         snaps,
		AutosaveEvery: cfg.Engine.AutosaveEvery.Std(),
		Logger:        logger,
	})

	s := &Server{cfg: cfg, logger: logger, engine: eng, store: snaps}
	if cfg.Monitor.Enabled {
		s.monitor = monitor.NewServer(cfg.Monitor.Addr, eng, logger)
	}
	return s, nil
}

// Engine exposes the running engine for embedding callers.
func (s *Server) Engine() *engine.Engine { return s.engine }

// Run restores the last snapshot if one exists, then serves until ctx is
// canceled. A final snapshot is saved on the way out.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.engine.Run(ctx) })
	if s.monitor != nil {
		g.Go(func() error { return s.monitor.Start(ctx) })
	}

	if s.store != nil {
		if err := s.engine.Load(ctx); err != nil {
			if errors.Is(err, store.ErrNoSnapshot) {
				s.logger.Info("no saved snapshot, starting empty")
			} else {
				s.logger.Warn("snapshot restore failed", log.Error(err))
			}
		} else {
			s.logger.Info("snapshot restored", log.String("path", s.cfg.Store.Path))
		}
	}

	err := g.Wait()

	if s.store != nil {
		saveCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if saveErr := s.store.Save(saveCtx, s.finalSnapshot()); saveErr != nil {
			s.logger.Error("final snapshot failed", log.Error(saveErr))
		}
	}
	return err
}

// finalSnapshot is taken after the engine loop has exited, so it reads the
// registry without going through the command channel.
func (s *Server) finalSnapshot() state.RegistrySnapshot {
	return s.engine.SnapshotAfterStop()
}
