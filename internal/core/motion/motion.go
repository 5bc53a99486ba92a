// Package motion implements the parametric curve generators that drive track
// positions. A model maps elapsed time to a position and holds no state that
// depends on call order, so the same elapsed time always yields the same
// position.
package motion

import (
	"errors"
	"fmt"
	"time"

	"github.com/tracksync/tracksync/internal/core/geometry"
)

// ErrInvalidConfig is wrapped by every construction-time validation failure.
var ErrInvalidConfig = errors.New("invalid motion configuration")

// Model generates positions from elapsed time.
//
// Cycle returns the bounding duration for terminal models and the period for
// periodic ones. Periodic models never complete; bounded models clamp to
// their end position once elapsed reaches Cycle.
type Model interface {
	At(elapsed time.Duration) geometry.Position
	Reset()
	Cycle() time.Duration
	Periodic() bool
}

// Easing remaps normalized time for bounded curves.
type Easing uint8

const (
	EasingLinear Easing = iota
	EasingIn
	EasingOut
	EasingInOut
)

func (e Easing) String() string {
	switch e {
	case EasingIn:
		return "ease-in"
	case EasingOut:
		return "ease-out"
	case EasingInOut:
		return "ease-in-out"
	default:
		return "linear"
	}
}

// ParseEasing parses the wire/config names for easing curves.
func ParseEasing(s string) (Easing, error) {
	switch s {
	case "linear", "":
		return EasingLinear, nil
	case "ease-in":
		return EasingIn, nil
	case "ease-out":
		return EasingOut, nil
	case "ease-in-out":
		return EasingInOut, nil
	default:
		return EasingLinear, fmt.Errorf("%w: unknown easing %q", ErrInvalidConfig, s)
	}
}

// Apply remaps t in [0,1] through the standard cubic curves.
func (e Easing) Apply(t float64) float64 {
	switch e {
	case EasingIn:
		return t * t * t
	case EasingOut:
		inv := 1 - t
		return 1 - inv*inv*inv
	case EasingInOut:
		if t < 0.5 {
			return 4 * t * t * t
		}
		inv := -2*t + 2
		return 1 - inv*inv*inv/2
	default:
		return t
	}
}

// Config describes a bounded point-to-point animation. It is immutable once a
// track has been built from it.
type Config struct {
	Duration time.Duration     `json:"duration" yaml:"duration"`
	Start    geometry.Position `json:"start" yaml:"start"`
	End      geometry.Position `json:"end" yaml:"end"`
	Easing   Easing            `json:"easing" yaml:"easing"`
}

// Validate rejects non-positive durations and non-finite coordinates.
func (c Config) Validate() error {
	if c.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %s", ErrInvalidConfig, c.Duration)
	}
	if !c.Start.IsFinite() {
		return fmt.Errorf("%w: start position is not finite", ErrInvalidConfig)
	}
	if !c.End.IsFinite() {
		return fmt.Errorf("%w: end position is not finite", ErrInvalidConfig)
	}
	return nil
}

func clamp01(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
