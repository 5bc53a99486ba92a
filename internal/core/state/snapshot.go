package state

import (
	"context"
	"fmt"
	"time"

	"github.com/tracksync/tracksync/internal/core/motion"
)

// TrackSnapshot is the durable form of a track: the model spec plus enough
// playback state to resume exactly where the registry left off.
type TrackSnapshot struct {
	ID       string        `json:"id" yaml:"id"`
	Address  string        `json:"address" yaml:"address"`
	Spec     motion.Spec   `json:"spec" yaml:"spec"`
	Playback string        `json:"playback" yaml:"playback"`
	Elapsed  time.Duration `json:"elapsed" yaml:"elapsed"`
}

// GroupSnapshot is the durable form of a group.
type GroupSnapshot struct {
	ID      string   `json:"id" yaml:"id"`
	Members []string `json:"members" yaml:"members"`
}

// RegistrySnapshot is a full serializable registry image.
type RegistrySnapshot struct {
	Taken  time.Time       `json:"taken" yaml:"taken"`
	Tracks []TrackSnapshot `json:"tracks" yaml:"tracks"`
	Groups []GroupSnapshot `json:"groups" yaml:"groups"`
}

// Store persists registry snapshots.
type Store interface {
	Save(ctx context.Context, snap RegistrySnapshot) error
	Load(ctx context.Context) (RegistrySnapshot, error)
}

// Snapshot captures the full registry, entities in insertion order.
func (r *Registry) Snapshot() RegistrySnapshot {
	snap := RegistrySnapshot{Taken: time.Now()}
	for _, id := range r.order {
		if t, ok := r.tracks[id]; ok {
			snap.Tracks = append(snap.Tracks, TrackSnapshot{
				ID:       t.id,
				Address:  t.address,
				Spec:     t.spec,
				Playback: t.playback.String(),
				Elapsed:  t.elapsed,
			})
			continue
		}
		if g, ok := r.groups[id]; ok {
			snap.Groups = append(snap.Groups, GroupSnapshot{ID: g.id, Members: g.Members()})
		}
	}
	return snap
}

// RestoreRegistry rebuilds a registry from a snapshot. Model specs are
// revalidated; a snapshot referencing unknown members or carrying a bad spec
// is rejected whole.
func RestoreRegistry(snap RegistrySnapshot) (*Registry, error) {
	r := NewRegistry()
	for _, ts := range snap.Tracks {
		t, err := NewTrack(ts.ID, ts.Spec)
		if err != nil {
			return nil, fmt.Errorf("track %q: %w", ts.ID, err)
		}
		if ts.Address != "" {
			t.SetAddress(ts.Address)
		}
		playback, err := ParsePlaybackState(ts.Playback)
		if err != nil {
			return nil, fmt.Errorf("track %q: %w", ts.ID, err)
		}
		t.restore(playback, ts.Elapsed)
		if err = r.AddTrack(t); err != nil {
			return nil, err
		}
	}
	for _, gs := range snap.Groups {
		g, err := NewGroup(gs.ID)
		if err != nil {
			return nil, err
		}
		if err = r.AddGroup(g); err != nil {
			return nil, err
		}
	}
	// Memberships last, so forward references between groups resolve.
	for _, gs := range snap.Groups {
		for _, member := range gs.Members {
			if err := r.AddMember(gs.ID, member); err != nil {
				return nil, err
			}
		}
	}
	return r, nil
}
