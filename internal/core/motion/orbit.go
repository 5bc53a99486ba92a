package motion

import (
	"fmt"
	"math"
	"time"

	"github.com/tracksync/tracksync/internal/core/geometry"
)

var (
	_ Model = (*Circular)(nil)
	_ Model = (*Elliptical)(nil)
)

// orbit is the shared angular motion underneath circular and elliptical
// models: center + (ru·cos(ωt+φ), rv·sin(ωt+φ)) mapped into the configured
// plane. A zero bound makes the motion periodic forever; a positive bound
// clamps the angle once elapsed reaches it.
type orbit struct {
	center    geometry.Position
	radiusU   float64
	radiusV   float64
	frequency float64 // revolutions per second
	phase     float64 // radians
	plane     geometry.Plane
	bound     time.Duration
}

func (o *orbit) validate() error {
	if !o.center.IsFinite() {
		return fmt.Errorf("%w: center is not finite", ErrInvalidConfig)
	}
	if o.radiusU < 0 || o.radiusV < 0 {
		return fmt.Errorf("%w: radius must be non-negative", ErrInvalidConfig)
	}
	if o.frequency <= 0 || math.IsNaN(o.frequency) || math.IsInf(o.frequency, 0) {
		return fmt.Errorf("%w: frequency must be positive, got %v", ErrInvalidConfig, o.frequency)
	}
	if o.bound < 0 {
		return fmt.Errorf("%w: bounding duration must be non-negative", ErrInvalidConfig)
	}
	return nil
}

func (o *orbit) At(elapsed time.Duration) geometry.Position {
	secs := elapsed.Seconds()
	if o.bound > 0 && secs > o.bound.Seconds() {
		secs = o.bound.Seconds()
	}
	angle := 2*math.Pi*o.frequency*secs + o.phase
	return o.plane.Point(o.center, o.radiusU*math.Cos(angle), o.radiusV*math.Sin(angle))
}

func (o *orbit) Reset() {}

func (o *orbit) Cycle() time.Duration {
	if o.bound > 0 {
		return o.bound
	}
	return time.Duration(float64(time.Second) / o.frequency)
}

func (o *orbit) Periodic() bool { return o.bound == 0 }

// Circular is constant-radius angular motion in a plane.
type Circular struct {
	orbit
}

// CircularOption adjusts optional circular parameters.
type CircularOption func(*orbit)

// WithPhase sets the starting angle in radians.
func WithPhase(phase float64) CircularOption {
	return func(o *orbit) { o.phase = phase }
}

// WithBound makes an otherwise periodic motion terminal after d.
func WithBound(d time.Duration) CircularOption {
	return func(o *orbit) { o.bound = d }
}

func NewCircular(center geometry.Position, radius, frequency float64, plane geometry.Plane, opts ...CircularOption) (*Circular, error) {
	c := &Circular{orbit{
		center:    center,
		radiusU:   radius,
		radiusV:   radius,
		frequency: frequency,
		plane:     plane,
	}}
	for _, opt := range opts {
		opt(&c.orbit)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Radius returns the orbit radius.
func (c *Circular) Radius() float64 { return c.radiusU }

// Elliptical is angular motion with independent radii per plane axis.
type Elliptical struct {
	orbit
}

func NewElliptical(center geometry.Position, majorAxis, minorAxis, frequency float64, plane geometry.Plane, opts ...CircularOption) (*Elliptical, error) {
	e := &Elliptical{orbit{
		center:    center,
		radiusU:   majorAxis,
		radiusV:   minorAxis,
		frequency: frequency,
		plane:     plane,
	}}
	for _, opt := range opts {
		opt(&e.orbit)
	}
	if err := e.validate(); err != nil {
		return nil, err
	}
	return e, nil
}
