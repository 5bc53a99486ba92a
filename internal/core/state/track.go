package state

import (
	"fmt"
	"time"

	"github.com/tracksync/tracksync/internal/core/geometry"
	"github.com/tracksync/tracksync/internal/core/motion"
)

// PlaybackState is the track state machine.
type PlaybackState uint8

const (
	Stopped PlaybackState = iota
	Playing
	Paused
	Completed
)

func (s PlaybackState) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Completed:
		return "completed"
	default:
		return "stopped"
	}
}

// ParsePlaybackState parses the snapshot form of a playback state.
func ParsePlaybackState(s string) (PlaybackState, error) {
	switch s {
	case "stopped", "":
		return Stopped, nil
	case "playing":
		return Playing, nil
	case "paused":
		return Paused, nil
	case "completed":
		return Completed, nil
	default:
		return Stopped, fmt.Errorf("%w: unknown playback state %q", ErrInvalidValue, s)
	}
}

// AnimationState is the live, readable projection of a track. Mutated only by
// Tick, Seek and Reset.
type AnimationState struct {
	ID       string            `json:"id"`
	Position geometry.Position `json:"position"`
	Progress float64           `json:"progress"`
	Playing  bool              `json:"playing"`
	Elapsed  time.Duration     `json:"elapsed"`
}

// Track binds one motion model to an identity and a playback state machine.
// Tracks live inside a Registry; everything outside refers to them by id.
type Track struct {
	id      string
	address string
	spec    motion.Spec
	model   motion.Model

	playback PlaybackState
	elapsed  time.Duration
	position geometry.Position
	progress float64
}

// NewTrack builds a track from a model spec. The spec is retained for
// snapshots. An empty id is rejected; the default broadcast address is
// /track/{id}/xyz.
func NewTrack(id string, spec motion.Spec) (*Track, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: track id must not be empty", ErrInvalidValue)
	}
	model, err := spec.Build()
	if err != nil {
		return nil, err
	}
	t := &Track{
		id:      id,
		address: fmt.Sprintf("/track/%s/xyz", id),
		spec:    spec,
		model:   model,
	}
	t.position = model.At(0)
	return t, nil
}

func (t *Track) ID() string { return t.id }

// Address is the OSC address used when broadcasting this track's position.
func (t *Track) Address() string { return t.address }

// SetAddress overrides the broadcast address.
func (t *Track) SetAddress(addr string) { t.address = addr }

// Spec returns the model spec the track was built from.
func (t *Track) Spec() motion.Spec { return t.spec }

// Playback returns the current state machine state.
func (t *Track) Playback() PlaybackState { return t.playback }

// State returns the current animation state snapshot.
func (t *Track) State() AnimationState {
	return AnimationState{
		ID:       t.id,
		Position: t.position,
		Progress: t.progress,
		Playing:  t.playback == Playing,
		Elapsed:  t.elapsed,
	}
}

// Play starts or resumes playback. Rejected on Completed; Reset first.
func (t *Track) Play() error {
	switch t.playback {
	case Stopped, Paused:
		t.playback = Playing
		return nil
	case Playing:
		return nil
	default:
		return fmt.Errorf("%w: cannot play a completed track, reset first", ErrInvalidTransition)
	}
}

// Pause suspends playback. Only legal while Playing.
func (t *Track) Pause() error {
	if t.playback != Playing {
		return fmt.Errorf("%w: cannot pause from %s", ErrInvalidTransition, t.playback)
	}
	t.playback = Paused
	return nil
}

// Reset rewinds to the initial position and returns to Stopped. Legal from
// any state.
func (t *Track) Reset() {
	t.playback = Stopped
	t.elapsed = 0
	t.progress = 0
	t.model.Reset()
	t.position = t.model.At(0)
}

// Tick advances elapsed time while Playing and recomputes position and
// progress. A bounded model reaching its end moves the track to Completed
// with the position clamped to the terminal point.
func (t *Track) Tick(delta time.Duration) {
	if t.playback != Playing || delta <= 0 {
		return
	}
	t.elapsed += delta
	t.refresh()
	if !t.model.Periodic() && t.progress >= 1 {
		t.playback = Completed
	}
}

// Seek jumps to a normalized progress (bounded models) or phase (periodic
// models) in [0, 1]. Rejected on Completed for non-periodic models.
func (t *Track) Seek(progress float64) error {
	if progress < 0 || progress > 1 {
		return fmt.Errorf("%w: seek progress %v outside [0, 1]", ErrInvalidValue, progress)
	}
	if t.playback == Completed && !t.model.Periodic() {
		return fmt.Errorf("%w: cannot seek a completed track, reset first", ErrInvalidTransition)
	}
	t.elapsed = time.Duration(progress * float64(t.model.Cycle()))
	t.refresh()
	return nil
}

// refresh recomputes position and progress from elapsed time. Progress is a
// clamped fraction for bounded models and a phase for periodic ones.
func (t *Track) refresh() {
	t.position = t.model.At(t.elapsed)
	cycle := t.model.Cycle()
	if cycle <= 0 {
		t.progress = 0
		return
	}
	frac := float64(t.elapsed) / float64(cycle)
	if t.model.Periodic() {
		t.progress = frac - float64(int64(frac))
		return
	}
	if frac > 1 {
		frac = 1
	}
	t.progress = frac
}

// restore overwrites the playback state from a history or storage snapshot.
func (t *Track) restore(playback PlaybackState, elapsed time.Duration) {
	t.playback = playback
	t.elapsed = elapsed
	t.refresh()
	if t.playback == Stopped && elapsed == 0 {
		t.progress = 0
	}
}
