package state

import (
	"time"

	"github.com/google/uuid"
)

// EntityState is the per-track playback state captured by a history entry.
// Membership and model specs are not versioned; history rewinds time, not
// structure.
type EntityState struct {
	ID       string        `json:"id"`
	Playback PlaybackState `json:"playback"`
	Elapsed  time.Duration `json:"elapsed"`
}

// Entry is one recorded point on the history timeline.
type Entry struct {
	ID       string        `json:"id"`
	Label    string        `json:"label,omitempty"`
	Recorded time.Time     `json:"recorded"`
	States   []EntityState `json:"states"`
}

// History is a linear undo/redo timeline over registry playback states.
// Recording while undone truncates the redo tail; there is no branching.
type History struct {
	entries []Entry
	cursor  int // index of the current entry, -1 when empty
	limit   int // max entries, 0 means unbounded
}

// NewHistory builds an empty history. A positive limit caps retained entries
// by evicting the oldest.
func NewHistory(limit int) *History {
	return &History{cursor: -1, limit: limit}
}

func (h *History) Len() int { return len(h.entries) }

func (h *History) CanUndo() bool { return h.cursor > 0 }

func (h *History) CanRedo() bool { return h.cursor >= 0 && h.cursor < len(h.entries)-1 }

// Record captures the registry's current playback states as a new entry.
// Any entries ahead of the cursor are discarded first.
func (h *History) Record(r *Registry, label string) Entry {
	if h.cursor < len(h.entries)-1 {
		h.entries = h.entries[:h.cursor+1]
	}
	e := Entry{
		ID:       uuid.NewString(),
		Label:    label,
		Recorded: time.Now(),
		States:   r.CaptureStates(),
	}
	h.entries = append(h.entries, e)
	if h.limit > 0 && len(h.entries) > h.limit {
		h.entries = h.entries[len(h.entries)-h.limit:]
	}
	h.cursor = len(h.entries) - 1
	return e
}

// Undo steps the cursor back one entry and applies it to the registry.
// Returns false with no effect at the start of the timeline.
func (h *History) Undo(r *Registry) bool {
	if !h.CanUndo() {
		return false
	}
	h.cursor--
	r.ApplyStates(h.entries[h.cursor].States)
	return true
}

// Redo steps the cursor forward one entry and applies it. Returns false with
// no effect at the end of the timeline.
func (h *History) Redo(r *Registry) bool {
	if !h.CanRedo() {
		return false
	}
	h.cursor++
	r.ApplyStates(h.entries[h.cursor].States)
	return true
}

// Entries returns a copy of the recorded timeline, oldest first.
func (h *History) Entries() []Entry {
	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}

// CaptureStates snapshots every track's playback state in insertion order.
func (r *Registry) CaptureStates() []EntityState {
	out := make([]EntityState, 0, len(r.tracks))
	for _, id := range r.order {
		if t, ok := r.tracks[id]; ok {
			out = append(out, EntityState{ID: id, Playback: t.playback, Elapsed: t.elapsed})
		}
	}
	return out
}

// ApplyStates restores captured playback states. Tracks that no longer exist
// are skipped; tracks created after the capture keep their current state.
func (r *Registry) ApplyStates(states []EntityState) {
	for _, s := range states {
		if t, ok := r.tracks[s.ID]; ok {
			t.restore(s.Playback, s.Elapsed)
		}
	}
}
