package motion

import (
	"fmt"
	"math"
	"time"

	"github.com/tracksync/tracksync/internal/core/geometry"
)

var _ Model = (*Spiral)(nil)

// RadiusGrowth selects how a spiral's radius evolves over its duration.
type RadiusGrowth uint8

const (
	GrowthLinear RadiusGrowth = iota
	GrowthExponential
)

// Spiral composes angular motion with a radius that ramps from start to end
// over the spiral duration. The angle keeps advancing past the duration but
// the radius clamps, so a bounded spiral settles into a circle at the end
// radius.
type Spiral struct {
	center      geometry.Position
	startRadius float64
	endRadius   float64
	frequency   float64
	growth      RadiusGrowth
	plane       geometry.Plane
	duration    time.Duration
}

func NewSpiral(center geometry.Position, startRadius, endRadius, frequency float64, duration time.Duration, plane geometry.Plane, growth RadiusGrowth) (*Spiral, error) {
	if !center.IsFinite() {
		return nil, fmt.Errorf("%w: center is not finite", ErrInvalidConfig)
	}
	if startRadius < 0 || endRadius < 0 {
		return nil, fmt.Errorf("%w: spiral radius must be non-negative", ErrInvalidConfig)
	}
	if growth == GrowthExponential && (startRadius == 0 || endRadius == 0) {
		return nil, fmt.Errorf("%w: exponential spiral requires non-zero radii", ErrInvalidConfig)
	}
	if frequency <= 0 || math.IsNaN(frequency) {
		return nil, fmt.Errorf("%w: frequency must be positive, got %v", ErrInvalidConfig, frequency)
	}
	if duration <= 0 {
		return nil, fmt.Errorf("%w: spiral duration must be positive, got %s", ErrInvalidConfig, duration)
	}
	return &Spiral{
		center:      center,
		startRadius: startRadius,
		endRadius:   endRadius,
		frequency:   frequency,
		growth:      growth,
		plane:       plane,
		duration:    duration,
	}, nil
}

func (s *Spiral) radius(t float64) float64 {
	switch s.growth {
	case GrowthExponential:
		return s.startRadius * math.Pow(s.endRadius/s.startRadius, t)
	default:
		return s.startRadius + (s.endRadius-s.startRadius)*t
	}
}

func (s *Spiral) At(elapsed time.Duration) geometry.Position {
	t := clamp01(elapsed.Seconds() / s.duration.Seconds())
	angle := 2 * math.Pi * s.frequency * elapsed.Seconds()
	r := s.radius(t)
	return s.plane.Point(s.center, r*math.Cos(angle), r*math.Sin(angle))
}

func (s *Spiral) Reset() {}

func (s *Spiral) Cycle() time.Duration { return s.duration }

func (s *Spiral) Periodic() bool { return false }
