package state

import "fmt"

// ProgressPolicy aggregates member progress values into a group progress.
// Only incomplete members are passed in; an empty slice means every member
// has completed.
type ProgressPolicy func(progress []float64) float64

// MinProgress is the default policy: the group is only as far along as its
// slowest incomplete member.
func MinProgress(progress []float64) float64 {
	if len(progress) == 0 {
		return 1
	}
	min := progress[0]
	for _, p := range progress[1:] {
		if p < min {
			min = p
		}
	}
	return min
}

// AvgProgress averages incomplete member progress.
func AvgProgress(progress []float64) float64 {
	if len(progress) == 0 {
		return 1
	}
	var sum float64
	for _, p := range progress {
		sum += p
	}
	return sum / float64(len(progress))
}

// Group is an ordered collection of track and group ids with cascaded
// playback commands. It holds references, never entities; the registry
// resolves members on every cascade.
type Group struct {
	id      string
	members []string
	policy  ProgressPolicy
}

// GroupOption adjusts optional group behavior.
type GroupOption func(*Group)

// WithProgressPolicy overrides the default min-progress aggregation.
func WithProgressPolicy(p ProgressPolicy) GroupOption {
	return func(g *Group) { g.policy = p }
}

func NewGroup(id string, opts ...GroupOption) (*Group, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: group id must not be empty", ErrInvalidValue)
	}
	g := &Group{id: id, policy: MinProgress}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

func (g *Group) ID() string { return g.id }

// Members returns the member ids in insertion order.
func (g *Group) Members() []string {
	out := make([]string, len(g.members))
	copy(out, g.members)
	return out
}

func (g *Group) contains(id string) bool {
	for _, m := range g.members {
		if m == id {
			return true
		}
	}
	return false
}

func (g *Group) remove(id string) {
	for i, m := range g.members {
		if m == id {
			g.members = append(g.members[:i], g.members[i+1:]...)
			return
		}
	}
}
