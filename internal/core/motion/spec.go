package motion

import (
	"fmt"
	"time"

	"github.com/tracksync/tracksync/internal/core/geometry"
)

// Spec is the self-describing, serializable form of a model. Snapshots carry
// specs so a registry can be rebuilt from storage without knowing which
// concrete model a track was running.
type Spec struct {
	Type       string          `json:"type" yaml:"type"`
	Linear     *Config         `json:"linear,omitempty" yaml:"linear,omitempty"`
	Circular   *CircularSpec   `json:"circular,omitempty" yaml:"circular,omitempty"`
	Elliptical *EllipticalSpec `json:"elliptical,omitempty" yaml:"elliptical,omitempty"`
	Spiral     *SpiralSpec     `json:"spiral,omitempty" yaml:"spiral,omitempty"`
	Composite  *CompositeSpec  `json:"composite,omitempty" yaml:"composite,omitempty"`
}

type CircularSpec struct {
	Center    geometry.Position `json:"center" yaml:"center"`
	Radius    float64           `json:"radius" yaml:"radius"`
	Frequency float64           `json:"frequency" yaml:"frequency"`
	Phase     float64           `json:"phase,omitempty" yaml:"phase,omitempty"`
	Plane     string            `json:"plane,omitempty" yaml:"plane,omitempty"`
	Bound     time.Duration     `json:"bound,omitempty" yaml:"bound,omitempty"`
}

type EllipticalSpec struct {
	Center    geometry.Position `json:"center" yaml:"center"`
	MajorAxis float64           `json:"major_axis" yaml:"major_axis"`
	MinorAxis float64           `json:"minor_axis" yaml:"minor_axis"`
	Frequency float64           `json:"frequency" yaml:"frequency"`
	Phase     float64           `json:"phase,omitempty" yaml:"phase,omitempty"`
	Plane     string            `json:"plane,omitempty" yaml:"plane,omitempty"`
	Bound     time.Duration     `json:"bound,omitempty" yaml:"bound,omitempty"`
}

type SpiralSpec struct {
	Center      geometry.Position `json:"center" yaml:"center"`
	StartRadius float64           `json:"start_radius" yaml:"start_radius"`
	EndRadius   float64           `json:"end_radius" yaml:"end_radius"`
	Frequency   float64           `json:"frequency" yaml:"frequency"`
	Duration    time.Duration     `json:"duration" yaml:"duration"`
	Plane       string            `json:"plane,omitempty" yaml:"plane,omitempty"`
	Growth      string            `json:"growth,omitempty" yaml:"growth,omitempty"`
}

type CompositeSpec struct {
	Mode     string        `json:"mode" yaml:"mode"`
	Segments []SegmentSpec `json:"segments" yaml:"segments"`
}

type SegmentSpec struct {
	Model Spec          `json:"model" yaml:"model"`
	Start time.Duration `json:"start" yaml:"start"`
	End   time.Duration `json:"end" yaml:"end"`
	Blend string        `json:"blend,omitempty" yaml:"blend,omitempty"`
}

// LinearSpec wraps a Config as a Spec.
func LinearSpec(cfg Config) Spec {
	return Spec{Type: "linear", Linear: &cfg}
}

// Build constructs the model the spec describes, running the same validation
// as the direct constructors.
func (s Spec) Build() (Model, error) {
	switch s.Type {
	case "linear":
		if s.Linear == nil {
			return nil, fmt.Errorf("%w: linear spec missing parameters", ErrInvalidConfig)
		}
		return NewLinear(*s.Linear)

	case "circular":
		if s.Circular == nil {
			return nil, fmt.Errorf("%w: circular spec missing parameters", ErrInvalidConfig)
		}
		c := s.Circular
		plane, err := geometry.ParsePlane(c.Plane)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		return NewCircular(c.Center, c.Radius, c.Frequency, plane, WithPhase(c.Phase), WithBound(c.Bound))

	case "elliptical":
		if s.Elliptical == nil {
			return nil, fmt.Errorf("%w: elliptical spec missing parameters", ErrInvalidConfig)
		}
		e := s.Elliptical
		plane, err := geometry.ParsePlane(e.Plane)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		return NewElliptical(e.Center, e.MajorAxis, e.MinorAxis, e.Frequency, plane, WithPhase(e.Phase), WithBound(e.Bound))

	case "spiral":
		if s.Spiral == nil {
			return nil, fmt.Errorf("%w: spiral spec missing parameters", ErrInvalidConfig)
		}
		sp := s.Spiral
		plane, err := geometry.ParsePlane(sp.Plane)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		growth, err := parseGrowth(sp.Growth)
		if err != nil {
			return nil, err
		}
		return NewSpiral(sp.Center, sp.StartRadius, sp.EndRadius, sp.Frequency, sp.Duration, plane, growth)

	case "composite":
		if s.Composite == nil {
			return nil, fmt.Errorf("%w: composite spec missing parameters", ErrInvalidConfig)
		}
		mode, err := parseMode(s.Composite.Mode)
		if err != nil {
			return nil, err
		}
		segments := make([]Segment, 0, len(s.Composite.Segments))
		for i, seg := range s.Composite.Segments {
			sub, err := seg.Model.Build()
			if err != nil {
				return nil, fmt.Errorf("segment %d: %w", i, err)
			}
			blend, err := parseBlend(seg.Blend)
			if err != nil {
				return nil, err
			}
			segments = append(segments, Segment{Model: sub, Start: seg.Start, End: seg.End, Blend: blend})
		}
		return NewComposite(mode, segments)

	default:
		return nil, fmt.Errorf("%w: unknown model type %q", ErrInvalidConfig, s.Type)
	}
}

func parseGrowth(s string) (RadiusGrowth, error) {
	switch s {
	case "linear", "":
		return GrowthLinear, nil
	case "exponential":
		return GrowthExponential, nil
	default:
		return GrowthLinear, fmt.Errorf("%w: unknown radius growth %q", ErrInvalidConfig, s)
	}
}

func parseMode(s string) (CompositionMode, error) {
	switch s {
	case "sequential", "":
		return Sequential, nil
	case "blended":
		return Blended, nil
	default:
		return Sequential, fmt.Errorf("%w: unknown composition mode %q", ErrInvalidConfig, s)
	}
}

func parseBlend(s string) (BlendCurve, error) {
	switch s {
	case "constant", "":
		return ConstantBlend, nil
	case "crossfade":
		return CrossfadeBlend, nil
	default:
		return nil, fmt.Errorf("%w: unknown blend curve %q", ErrInvalidConfig, s)
	}
}
