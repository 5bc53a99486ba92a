package state

import (
	"fmt"
	"time"

	"github.com/tracksync/tracksync/internal/core/motion"
)

// Registry is the exclusive owner of every track and group, keyed by unique
// id shared across both kinds. It is not safe for concurrent use; the engine
// loop owns it and serializes access (see engine package).
type Registry struct {
	tracks map[string]*Track
	groups map[string]*Group
	order  []string // insertion order, for deterministic iteration
}

func NewRegistry() *Registry {
	return &Registry{
		tracks: make(map[string]*Track),
		groups: make(map[string]*Group),
	}
}

func (r *Registry) exists(id string) bool {
	_, t := r.tracks[id]
	_, g := r.groups[id]
	return t || g
}

// AddTrack registers a track. Duplicate ids are rejected and the existing
// entity is left untouched.
func (r *Registry) AddTrack(t *Track) error {
	if r.exists(t.ID()) {
		return fmt.Errorf("%w: id %q already registered", ErrInvalidValue, t.ID())
	}
	r.tracks[t.ID()] = t
	r.order = append(r.order, t.ID())
	return nil
}

// AddGroup registers a group. Duplicate ids are rejected.
func (r *Registry) AddGroup(g *Group) error {
	if r.exists(g.ID()) {
		return fmt.Errorf("%w: id %q already registered", ErrInvalidValue, g.ID())
	}
	r.groups[g.ID()] = g
	r.order = append(r.order, g.ID())
	return nil
}

// NewTrack builds a track from a spec and registers it in one step.
func (r *Registry) NewTrack(id string, spec motion.Spec) (*Track, error) {
	t, err := NewTrack(id, spec)
	if err != nil {
		return nil, err
	}
	if err = r.AddTrack(t); err != nil {
		return nil, err
	}
	return t, nil
}

// Track resolves a track id.
func (r *Registry) Track(id string) (*Track, error) {
	t, ok := r.tracks[id]
	if !ok {
		return nil, fmt.Errorf("%w: track %q", ErrNotFound, id)
	}
	return t, nil
}

// Group resolves a group id.
func (r *Registry) Group(id string) (*Group, error) {
	g, ok := r.groups[id]
	if !ok {
		return nil, fmt.Errorf("%w: group %q", ErrNotFound, id)
	}
	return g, nil
}

// Remove deletes an entity and detaches its id from every group membership.
// Members of a removed group are not deleted.
func (r *Registry) Remove(id string) error {
	if !r.exists(id) {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	delete(r.tracks, id)
	delete(r.groups, id)
	for i, ordered := range r.order {
		if ordered == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	for _, g := range r.groups {
		g.remove(id)
	}
	return nil
}

// TrackIDs returns all track ids in insertion order.
func (r *Registry) TrackIDs() []string {
	ids := make([]string, 0, len(r.tracks))
	for _, id := range r.order {
		if _, ok := r.tracks[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// GroupIDs returns all group ids in insertion order.
func (r *Registry) GroupIDs() []string {
	ids := make([]string, 0, len(r.groups))
	for _, id := range r.order {
		if _, ok := r.groups[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// AddMember appends a member id to a group. The member must exist and the
// resulting membership graph must stay acyclic.
func (r *Registry) AddMember(groupID, memberID string) error {
	g, err := r.Group(groupID)
	if err != nil {
		return err
	}
	if !r.exists(memberID) {
		return fmt.Errorf("%w: member %q", ErrNotFound, memberID)
	}
	if g.contains(memberID) {
		return fmt.Errorf("%w: %q is already a member of %q", ErrInvalidValue, memberID, groupID)
	}
	if memberID == groupID || r.reaches(memberID, groupID) {
		return fmt.Errorf("%w: adding %q to %q would create a membership cycle", ErrInvalidValue, memberID, groupID)
	}
	g.members = append(g.members, memberID)
	return nil
}

// RemoveMember detaches a member id from a group without deleting it.
func (r *Registry) RemoveMember(groupID, memberID string) error {
	g, err := r.Group(groupID)
	if err != nil {
		return err
	}
	if !g.contains(memberID) {
		return fmt.Errorf("%w: %q is not a member of %q", ErrNotFound, memberID, groupID)
	}
	g.remove(memberID)
	return nil
}

// reaches reports whether to is reachable from the group rooted at from.
func (r *Registry) reaches(from, to string) bool {
	g, ok := r.groups[from]
	if !ok {
		return false
	}
	for _, m := range g.members {
		if m == to || r.reaches(m, to) {
			return true
		}
	}
	return false
}

// Play cascades a play command through a track or group id. Group cascades
// skip Completed members so one finished member does not abort the cascade
// with the rest of the group half started.
func (r *Registry) Play(id string) error {
	if t, ok := r.tracks[id]; ok {
		return t.Play()
	}
	return r.cascade(id, func(t *Track) error {
		if t.Playback() == Completed {
			return nil
		}
		return t.Play()
	})
}

// Pause cascades a pause command. Group cascades skip members that are not
// currently playing so one stopped member does not fail the whole group.
func (r *Registry) Pause(id string) error {
	if t, ok := r.tracks[id]; ok {
		return t.Pause()
	}
	return r.cascade(id, func(t *Track) error {
		if t.Playback() != Playing {
			return nil
		}
		return t.Pause()
	})
}

// Reset cascades a reset command.
func (r *Registry) Reset(id string) error {
	return r.cascade(id, func(t *Track) error {
		t.Reset()
		return nil
	})
}

// Seek applies a seek to a single track. Groups are not seekable; members
// may have incompatible timelines.
func (r *Registry) Seek(id string, progress float64) error {
	t, err := r.Track(id)
	if err != nil {
		return err
	}
	return t.Seek(progress)
}

func (r *Registry) cascade(id string, apply func(*Track) error) error {
	if t, ok := r.tracks[id]; ok {
		return apply(t)
	}
	g, ok := r.groups[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	for _, member := range g.members {
		if err := r.cascade(member, apply); err != nil {
			return err
		}
	}
	return nil
}

// Progress returns a track's progress, or a group's aggregate over its
// incomplete members per the group's progress policy.
func (r *Registry) Progress(id string) (float64, error) {
	if t, ok := r.tracks[id]; ok {
		return t.State().Progress, nil
	}
	g, ok := r.groups[id]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	var incomplete []float64
	if err := r.collectProgress(g, &incomplete); err != nil {
		return 0, err
	}
	return g.policy(incomplete), nil
}

func (r *Registry) collectProgress(g *Group, out *[]float64) error {
	for _, member := range g.members {
		if t, ok := r.tracks[member]; ok {
			if t.Playback() != Completed {
				*out = append(*out, t.State().Progress)
			}
			continue
		}
		sub, ok := r.groups[member]
		if !ok {
			return fmt.Errorf("%w: %q", ErrNotFound, member)
		}
		if err := r.collectProgress(sub, out); err != nil {
			return err
		}
	}
	return nil
}

// Tick advances every playing track by delta, in insertion order.
func (r *Registry) Tick(delta time.Duration) {
	for _, id := range r.order {
		if t, ok := r.tracks[id]; ok {
			t.Tick(delta)
		}
	}
}

// States returns the animation state of every track in insertion order.
func (r *Registry) States() []AnimationState {
	out := make([]AnimationState, 0, len(r.tracks))
	for _, id := range r.order {
		if t, ok := r.tracks[id]; ok {
			out = append(out, t.State())
		}
	}
	return out
}
