package osc

import (
	"fmt"
	"strings"
)

// Cartesian is a controller-facing xyz position in meters.
type Cartesian struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Polar is a controller-facing azimuth/elevation/distance position, angles
// in degrees.
type Polar struct {
	Azimuth   float64 `json:"azim"`
	Elevation float64 `json:"elev"`
	Distance  float64 `json:"dist"`
}

// Color is an RGBA color with components in [0, 1].
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
	A float64 `json:"a"`
}

// Parameters is the controller-facing parameter set of one track. Nil
// fields have never been set.
type Parameters struct {
	Cartesian *Cartesian `json:"cartesian,omitempty"`
	Polar     *Polar     `json:"polar,omitempty"`
	Gain      *float64   `json:"gain,omitempty"`
	Speed     *float64   `json:"speed,omitempty"`
	Mute      *bool      `json:"mute,omitempty"`
	Color     *Color     `json:"color,omitempty"`
}

// TrackState is the shape exchanged with external controllers, distinct
// from the internal animation state.
type TrackState struct {
	TrackID    string     `json:"track_id"`
	Parameters Parameters `json:"parameters"`
}

const coordLimit = 1000

// ValidateTrackID rejects empty ids and ids that would break an OSC address.
func ValidateTrackID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: track id cannot be empty", ErrProtocol)
	}
	if strings.ContainsRune(id, '/') {
		return fmt.Errorf("%w: track id cannot contain '/'", ErrProtocol)
	}
	return nil
}

func (c Cartesian) Validate() error {
	for _, axis := range []struct {
		name  string
		value float64
	}{{"x", c.X}, {"y", c.Y}, {"z", c.Z}} {
		if axis.value < -coordLimit || axis.value > coordLimit {
			return fmt.Errorf("%w: %s coordinate %g out of range [-1000, 1000]",
				ErrProtocol, axis.name, axis.value)
		}
	}
	return nil
}

func (p Polar) Validate() error {
	if p.Azimuth < 0 || p.Azimuth > 360 {
		return fmt.Errorf("%w: azimuth %g out of range [0, 360]", ErrProtocol, p.Azimuth)
	}
	if p.Elevation < -90 || p.Elevation > 90 {
		return fmt.Errorf("%w: elevation %g out of range [-90, 90]", ErrProtocol, p.Elevation)
	}
	if p.Distance < 0 {
		return fmt.Errorf("%w: distance %g must be non-negative", ErrProtocol, p.Distance)
	}
	return nil
}

func (c Color) Validate() error {
	for _, comp := range []struct {
		name  string
		value float64
	}{{"red", c.R}, {"green", c.G}, {"blue", c.B}, {"alpha", c.A}} {
		if comp.value < 0 || comp.value > 1 {
			return fmt.Errorf("%w: %s component %g out of range [0, 1]",
				ErrProtocol, comp.name, comp.value)
		}
	}
	return nil
}

// ValidateGain bounds gain to the console-safe [-60, +12] dB window.
func ValidateGain(db float64) error {
	if db < -60 || db > 12 {
		return fmt.Errorf("%w: gain %g out of range [-60, 12] dB", ErrProtocol, db)
	}
	return nil
}

// ValidateSpeed rejects non-positive playback speed multipliers.
func ValidateSpeed(speed float64) error {
	if speed <= 0 {
		return fmt.Errorf("%w: speed %g must be positive", ErrProtocol, speed)
	}
	return nil
}

// Validate checks every set field.
func (p Parameters) Validate() error {
	if p.Cartesian != nil {
		if err := p.Cartesian.Validate(); err != nil {
			return err
		}
	}
	if p.Polar != nil {
		if err := p.Polar.Validate(); err != nil {
			return err
		}
	}
	if p.Gain != nil {
		if err := ValidateGain(*p.Gain); err != nil {
			return err
		}
	}
	if p.Speed != nil {
		if err := ValidateSpeed(*p.Speed); err != nil {
			return err
		}
	}
	if p.Color != nil {
		if err := p.Color.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Merge overlays the set fields of other onto p and returns the result.
func (p Parameters) Merge(other Parameters) Parameters {
	if other.Cartesian != nil {
		p.Cartesian = other.Cartesian
	}
	if other.Polar != nil {
		p.Polar = other.Polar
	}
	if other.Gain != nil {
		p.Gain = other.Gain
	}
	if other.Speed != nil {
		p.Speed = other.Speed
	}
	if other.Mute != nil {
		p.Mute = other.Mute
	}
	if other.Color != nil {
		p.Color = other.Color
	}
	return p
}
