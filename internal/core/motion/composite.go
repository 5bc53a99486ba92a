package motion

import (
	"fmt"
	"sort"
	"time"

	"github.com/tracksync/tracksync/internal/core/geometry"
)

var _ Model = (*Composite)(nil)

// CompositionMode selects how a composite resolves its segments.
type CompositionMode uint8

const (
	// Sequential requires contiguous, non-overlapping windows; exactly one
	// segment is active for any elapsed time within the composite.
	Sequential CompositionMode = iota
	// Blended sums the positions of every window containing the elapsed
	// time, each weighted by its blend curve.
	Blended
)

// BlendCurve weighs a segment's contribution as a function of normalized
// position within its window. Only consulted in Blended mode.
type BlendCurve func(t float64) float64

// ConstantBlend contributes the full position across the whole window.
func ConstantBlend(float64) float64 { return 1 }

// CrossfadeBlend ramps in over the first half of the window and out over the
// second, for smooth handover between overlapping segments.
func CrossfadeBlend(t float64) float64 {
	if t < 0.5 {
		return 2 * t
	}
	return 2 * (1 - t)
}

// Segment is one sub-model active over [Start, End) of composite time.
// Sub-models see window-relative elapsed time.
type Segment struct {
	Model Model
	Start time.Duration
	End   time.Duration
	Blend BlendCurve
}

// Composite runs an ordered list of time-windowed sub-models. Segment
// selection is a pure function of elapsed time; nothing is cached between
// calls, so updates may arrive for non-monotonic times.
type Composite struct {
	mode     CompositionMode
	segments []Segment
	total    time.Duration
}

func NewComposite(mode CompositionMode, segments []Segment) (*Composite, error) {
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: composite requires at least one segment", ErrInvalidConfig)
	}
	sorted := make([]Segment, len(segments))
	copy(sorted, segments)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var total time.Duration
	for i := range sorted {
		s := &sorted[i]
		if s.Model == nil {
			return nil, fmt.Errorf("%w: segment %d has no model", ErrInvalidConfig, i)
		}
		if s.Start < 0 || s.End <= s.Start {
			return nil, fmt.Errorf("%w: segment %d window [%s, %s) is invalid", ErrInvalidConfig, i, s.Start, s.End)
		}
		if s.Blend == nil {
			s.Blend = ConstantBlend
		}
		if s.End > total {
			total = s.End
		}
	}

	if mode == Sequential {
		if sorted[0].Start != 0 {
			return nil, fmt.Errorf("%w: sequential composite must start at 0, got %s", ErrInvalidConfig, sorted[0].Start)
		}
		for i := 1; i < len(sorted); i++ {
			if sorted[i].Start != sorted[i-1].End {
				return nil, fmt.Errorf("%w: sequential windows must be contiguous, segment %d starts at %s but previous ends at %s",
					ErrInvalidConfig, i, sorted[i].Start, sorted[i-1].End)
			}
		}
	}

	return &Composite{mode: mode, segments: sorted, total: total}, nil
}

func (c *Composite) At(elapsed time.Duration) geometry.Position {
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > c.total {
		elapsed = c.total
	}

	if c.mode == Sequential {
		seg := c.segmentAt(elapsed)
		return seg.Model.At(elapsed - seg.Start)
	}

	var sum geometry.Position
	for i := range c.segments {
		s := &c.segments[i]
		// Windows are half-open; a window ending at the composite total
		// also owns the closing instant, like segmentAt.
		closing := elapsed == c.total && s.End == c.total
		if elapsed < s.Start || (elapsed >= s.End && !closing) {
			continue
		}
		local := elapsed - s.Start
		t := local.Seconds() / (s.End - s.Start).Seconds()
		sum = sum.Add(s.Model.At(local).Scale(s.Blend(t)))
	}
	return sum
}

// segmentAt picks the window containing elapsed. The last segment also owns
// its closing instant so the composite has a defined end position.
func (c *Composite) segmentAt(elapsed time.Duration) *Segment {
	for i := range c.segments {
		s := &c.segments[i]
		if elapsed >= s.Start && elapsed < s.End {
			return s
		}
	}
	return &c.segments[len(c.segments)-1]
}

func (c *Composite) Reset() {
	for i := range c.segments {
		c.segments[i].Model.Reset()
	}
}

func (c *Composite) Cycle() time.Duration { return c.total }

func (c *Composite) Periodic() bool { return false }
