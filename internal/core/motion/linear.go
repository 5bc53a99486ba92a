package motion

import (
	"time"

	"github.com/tracksync/tracksync/internal/core/geometry"
)

var _ Model = (*Linear)(nil)

// Linear moves from start to end over a fixed duration, with the configured
// easing applied to normalized time. Terminal once elapsed reaches the
// duration.
type Linear struct {
	cfg Config
}

func NewLinear(cfg Config) (*Linear, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Linear{cfg: cfg}, nil
}

func (l *Linear) At(elapsed time.Duration) geometry.Position {
	t := clamp01(elapsed.Seconds() / l.cfg.Duration.Seconds())
	return l.cfg.Start.Lerp(l.cfg.End, l.cfg.Easing.Apply(t))
}

func (l *Linear) Reset() {}

func (l *Linear) Cycle() time.Duration { return l.cfg.Duration }

func (l *Linear) Periodic() bool { return false }

// Start returns the configured start position.
func (l *Linear) Start() geometry.Position { return l.cfg.Start }

// End returns the configured end position.
func (l *Linear) End() geometry.Position { return l.cfg.End }
