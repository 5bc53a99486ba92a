package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracksync/tracksync/internal/core/geometry"
	"github.com/tracksync/tracksync/internal/core/motion"
)

func linearSpec(end geometry.Position, d time.Duration, e motion.Easing) motion.Spec {
	return motion.LinearSpec(motion.Config{
		Duration: d,
		Start:    geometry.Position{},
		End:      end,
		Easing:   e,
	})
}

func circularSpec(radius, freq float64) motion.Spec {
	return motion.Spec{
		Type: "circular",
		Circular: &motion.CircularSpec{
			Radius:    radius,
			Frequency: freq,
		},
	}
}

func TestTrackLifecycle(t *testing.T) {
	tr, err := NewTrack("t1", linearSpec(geometry.Position{X: 10}, 2*time.Second, motion.EasingInOut))
	require.NoError(t, err)

	assert.Equal(t, Stopped, tr.Playback())
	assert.Equal(t, "/track/t1/xyz", tr.Address())

	require.NoError(t, tr.Play())
	assert.Equal(t, Playing, tr.Playback())

	for i := 0; i < 4; i++ {
		tr.Tick(500 * time.Millisecond)
	}
	st := tr.State()
	assert.Equal(t, Completed, tr.Playback())
	assert.InDelta(t, 10, st.Position.X, 1e-9)
	assert.InDelta(t, 1, st.Progress, 1e-9)
	assert.Equal(t, 2*time.Second, st.Elapsed)

	err = tr.Play()
	assert.ErrorIs(t, err, ErrInvalidTransition)

	tr.Reset()
	assert.Equal(t, Stopped, tr.Playback())
	assert.Zero(t, tr.State().Elapsed)
	assert.Zero(t, tr.State().Progress)
	require.NoError(t, tr.Play())
}

func TestTrackPauseResume(t *testing.T) {
	tr, err := NewTrack("t1", linearSpec(geometry.Position{X: 10}, 2*time.Second, motion.EasingLinear))
	require.NoError(t, err)

	assert.ErrorIs(t, tr.Pause(), ErrInvalidTransition)

	require.NoError(t, tr.Play())
	tr.Tick(time.Second)
	require.NoError(t, tr.Pause())

	// Ticks while paused are ignored.
	tr.Tick(time.Second)
	assert.Equal(t, time.Second, tr.State().Elapsed)
	assert.InDelta(t, 5, tr.State().Position.X, 1e-9)

	require.NoError(t, tr.Play())
	tr.Tick(time.Second)
	assert.Equal(t, Completed, tr.Playback())
}

func TestTrackSeek(t *testing.T) {
	tr, err := NewTrack("t1", linearSpec(geometry.Position{X: 10}, 2*time.Second, motion.EasingLinear))
	require.NoError(t, err)

	assert.ErrorIs(t, tr.Seek(-0.1), ErrInvalidValue)
	assert.ErrorIs(t, tr.Seek(1.1), ErrInvalidValue)

	require.NoError(t, tr.Seek(0.5))
	assert.InDelta(t, 5, tr.State().Position.X, 1e-9)
	assert.Equal(t, Stopped, tr.Playback())

	require.NoError(t, tr.Play())
	tr.Tick(2 * time.Second)
	require.Equal(t, Completed, tr.Playback())
	assert.ErrorIs(t, tr.Seek(0.5), ErrInvalidTransition)
}

func TestTrackSeekPeriodic(t *testing.T) {
	tr, err := NewTrack("orbit", circularSpec(2, 1))
	require.NoError(t, err)

	// Quarter turn on a 1 Hz circle.
	require.NoError(t, tr.Seek(0.25))
	st := tr.State()
	assert.InDelta(t, 0, st.Position.X, 1e-9)
	assert.InDelta(t, 2, st.Position.Y, 1e-9)
	assert.InDelta(t, 0.25, st.Progress, 1e-9)

	// Periodic models never complete.
	require.NoError(t, tr.Play())
	tr.Tick(10 * time.Second)
	assert.Equal(t, Playing, tr.Playback())
}

func TestRegistryUniqueIDs(t *testing.T) {
	r := NewRegistry()
	_, err := r.NewTrack("a", circularSpec(1, 1))
	require.NoError(t, err)

	_, err = r.NewTrack("a", circularSpec(1, 1))
	assert.ErrorIs(t, err, ErrInvalidValue)

	g, err := NewGroup("a")
	require.NoError(t, err)
	assert.ErrorIs(t, r.AddGroup(g), ErrInvalidValue)

	// The original entity is untouched.
	tr, err := r.Track("a")
	require.NoError(t, err)
	assert.Equal(t, "a", tr.ID())
}

func TestRegistryRemoveDetachesMembership(t *testing.T) {
	r := NewRegistry()
	_, err := r.NewTrack("a", circularSpec(1, 1))
	require.NoError(t, err)
	_, err = r.NewTrack("b", circularSpec(1, 1))
	require.NoError(t, err)

	g, err := NewGroup("g")
	require.NoError(t, err)
	require.NoError(t, r.AddGroup(g))
	require.NoError(t, r.AddMember("g", "a"))
	require.NoError(t, r.AddMember("g", "b"))

	require.NoError(t, r.Remove("a"))
	assert.Equal(t, []string{"b"}, g.Members())

	_, err = r.Track("a")
	assert.ErrorIs(t, err, ErrNotFound)

	// Removing a group keeps its members alive.
	require.NoError(t, r.Remove("g"))
	_, err = r.Track("b")
	assert.NoError(t, err)
}

func TestRegistryMembershipCycle(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"g1", "g2", "g3"} {
		g, err := NewGroup(id)
		require.NoError(t, err)
		require.NoError(t, r.AddGroup(g))
	}
	require.NoError(t, r.AddMember("g1", "g2"))
	require.NoError(t, r.AddMember("g2", "g3"))

	assert.ErrorIs(t, r.AddMember("g3", "g1"), ErrInvalidValue)
	assert.ErrorIs(t, r.AddMember("g1", "g1"), ErrInvalidValue)
	assert.ErrorIs(t, r.AddMember("g1", "g2"), ErrInvalidValue) // duplicate
	assert.ErrorIs(t, r.AddMember("g1", "missing"), ErrNotFound)
}

func TestGroupCascade(t *testing.T) {
	r := NewRegistry()
	_, err := r.NewTrack("a", linearSpec(geometry.Position{X: 1}, time.Second, motion.EasingLinear))
	require.NoError(t, err)
	_, err = r.NewTrack("b", circularSpec(1, 1))
	require.NoError(t, err)

	g, err := NewGroup("g")
	require.NoError(t, err)
	require.NoError(t, r.AddGroup(g))
	require.NoError(t, r.AddMember("g", "a"))
	require.NoError(t, r.AddMember("g", "b"))

	require.NoError(t, r.Play("g"))
	for _, id := range []string{"a", "b"} {
		tr, err := r.Track(id)
		require.NoError(t, err)
		assert.Equal(t, Playing, tr.Playback())
	}

	// One member pausing on its own must not break a group pause.
	require.NoError(t, r.Pause("a"))
	require.NoError(t, r.Pause("g"))
	tr, err := r.Track("b")
	require.NoError(t, err)
	assert.Equal(t, Paused, tr.Playback())

	require.NoError(t, r.Reset("g"))
	for _, id := range []string{"a", "b"} {
		tr, err := r.Track(id)
		require.NoError(t, err)
		assert.Equal(t, Stopped, tr.Playback())
	}
}

func TestGroupPlaySkipsCompletedMembers(t *testing.T) {
	r := NewRegistry()
	done, err := r.NewTrack("done", linearSpec(geometry.Position{X: 1}, time.Second, motion.EasingLinear))
	require.NoError(t, err)
	_, err = r.NewTrack("idle", linearSpec(geometry.Position{X: 1}, time.Hour, motion.EasingLinear))
	require.NoError(t, err)

	g, err := NewGroup("g")
	require.NoError(t, err)
	require.NoError(t, r.AddGroup(g))
	require.NoError(t, r.AddMember("g", "done"))
	require.NoError(t, r.AddMember("g", "idle"))

	require.NoError(t, done.Play())
	r.Tick(2 * time.Second)
	require.Equal(t, Completed, done.Playback())

	// The finished member is skipped; the rest of the group still plays.
	require.NoError(t, r.Play("g"))
	idle, err := r.Track("idle")
	require.NoError(t, err)
	assert.Equal(t, Playing, idle.Playback())
	assert.Equal(t, Completed, done.Playback())

	// Playing a completed track directly is still rejected.
	assert.ErrorIs(t, r.Play("done"), ErrInvalidTransition)
}

func TestGroupProgress(t *testing.T) {
	r := NewRegistry()
	_, err := r.NewTrack("fast", linearSpec(geometry.Position{X: 1}, time.Second, motion.EasingLinear))
	require.NoError(t, err)
	_, err = r.NewTrack("slow", linearSpec(geometry.Position{X: 1}, 4*time.Second, motion.EasingLinear))
	require.NoError(t, err)

	g, err := NewGroup("g")
	require.NoError(t, err)
	require.NoError(t, r.AddGroup(g))
	require.NoError(t, r.AddMember("g", "fast"))
	require.NoError(t, r.AddMember("g", "slow"))

	require.NoError(t, r.Play("g"))
	r.Tick(500 * time.Millisecond)

	p, err := r.Progress("g")
	require.NoError(t, err)
	assert.InDelta(t, 0.125, p, 1e-9) // slowest incomplete member

	// Once the fast member completes it drops out of the aggregate.
	r.Tick(time.Second)
	p, err = r.Progress("g")
	require.NoError(t, err)
	assert.InDelta(t, 0.375, p, 1e-9)
}

func TestGroupProgressAvgPolicy(t *testing.T) {
	r := NewRegistry()
	_, err := r.NewTrack("a", linearSpec(geometry.Position{X: 1}, time.Second, motion.EasingLinear))
	require.NoError(t, err)
	_, err = r.NewTrack("b", linearSpec(geometry.Position{X: 1}, 2*time.Second, motion.EasingLinear))
	require.NoError(t, err)

	g, err := NewGroup("g", WithProgressPolicy(AvgProgress))
	require.NoError(t, err)
	require.NoError(t, r.AddGroup(g))
	require.NoError(t, r.AddMember("g", "a"))
	require.NoError(t, r.AddMember("g", "b"))

	require.NoError(t, r.Play("g"))
	r.Tick(500 * time.Millisecond)

	p, err := r.Progress("g")
	require.NoError(t, err)
	assert.InDelta(t, 0.375, p, 1e-9) // (0.5 + 0.25) / 2
}

func TestHistoryUndoRedo(t *testing.T) {
	r := NewRegistry()
	tr, err := r.NewTrack("a", linearSpec(geometry.Position{X: 10}, 2*time.Second, motion.EasingLinear))
	require.NoError(t, err)
	h := NewHistory(0)

	h.Record(r, "initial")
	require.NoError(t, tr.Play())
	tr.Tick(time.Second)
	h.Record(r, "midway")

	assert.False(t, h.CanRedo())
	require.True(t, h.Undo(r))
	assert.Equal(t, Stopped, tr.Playback())
	assert.Zero(t, tr.State().Elapsed)

	assert.False(t, h.Undo(r)) // start of timeline

	require.True(t, h.Redo(r))
	assert.Equal(t, Playing, tr.Playback())
	assert.Equal(t, time.Second, tr.State().Elapsed)
	assert.InDelta(t, 5, tr.State().Position.X, 1e-9)

	assert.False(t, h.Redo(r)) // end of timeline
}

func TestHistoryRecordTruncatesRedo(t *testing.T) {
	r := NewRegistry()
	tr, err := r.NewTrack("a", linearSpec(geometry.Position{X: 10}, 4*time.Second, motion.EasingLinear))
	require.NoError(t, err)
	h := NewHistory(0)

	h.Record(r, "s0")
	require.NoError(t, tr.Play())
	tr.Tick(time.Second)
	h.Record(r, "s1")
	tr.Tick(time.Second)
	h.Record(r, "s2")

	require.True(t, h.Undo(r))
	require.True(t, h.Undo(r))
	require.True(t, h.CanRedo())

	tr.Tick(3 * time.Second)
	h.Record(r, "branch")

	assert.False(t, h.CanRedo())
	assert.Equal(t, 2, h.Len())

	require.True(t, h.Undo(r))
	assert.Zero(t, tr.State().Elapsed)
}

func TestHistoryLimit(t *testing.T) {
	r := NewRegistry()
	tr, err := r.NewTrack("a", circularSpec(1, 1))
	require.NoError(t, err)
	require.NoError(t, tr.Play())

	h := NewHistory(3)
	for i := 0; i < 5; i++ {
		tr.Tick(100 * time.Millisecond)
		h.Record(r, "")
	}
	assert.Equal(t, 3, h.Len())

	// Only the retained tail is undoable.
	assert.True(t, h.Undo(r))
	assert.True(t, h.Undo(r))
	assert.False(t, h.Undo(r))
	assert.Equal(t, 300*time.Millisecond, tr.State().Elapsed)
}

func TestHistorySkipsRemovedTracks(t *testing.T) {
	r := NewRegistry()
	_, err := r.NewTrack("a", circularSpec(1, 1))
	require.NoError(t, err)
	_, err = r.NewTrack("b", circularSpec(1, 1))
	require.NoError(t, err)

	h := NewHistory(0)
	require.NoError(t, r.Play("a"))
	require.NoError(t, r.Play("b"))
	r.Tick(time.Second)
	h.Record(r, "both")
	r.Tick(time.Second)
	h.Record(r, "later")

	require.NoError(t, r.Remove("a"))
	require.True(t, h.Undo(r))

	tr, err := r.Track("b")
	require.NoError(t, err)
	assert.Equal(t, time.Second, tr.State().Elapsed)
}

func TestSnapshotRoundTrip(t *testing.T) {
	r := NewRegistry()
	tr, err := r.NewTrack("a", linearSpec(geometry.Position{X: 10}, 2*time.Second, motion.EasingInOut))
	require.NoError(t, err)
	tr.SetAddress("/stage/left/xyz")
	_, err = r.NewTrack("b", circularSpec(2, 0.5))
	require.NoError(t, err)

	g, err := NewGroup("g")
	require.NoError(t, err)
	require.NoError(t, r.AddGroup(g))
	require.NoError(t, r.AddMember("g", "a"))
	require.NoError(t, r.AddMember("g", "b"))

	require.NoError(t, tr.Play())
	tr.Tick(time.Second)
	require.NoError(t, tr.Pause())

	restored, err := RestoreRegistry(r.Snapshot())
	require.NoError(t, err)

	got, err := restored.Track("a")
	require.NoError(t, err)
	assert.Equal(t, Paused, got.Playback())
	assert.Equal(t, time.Second, got.State().Elapsed)
	assert.Equal(t, "/stage/left/xyz", got.Address())
	assert.InDelta(t, tr.State().Position.X, got.State().Position.X, 1e-9)

	rg, err := restored.Group("g")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, rg.Members())
}

func TestRestoreRejectsBadSnapshot(t *testing.T) {
	_, err := RestoreRegistry(RegistrySnapshot{
		Tracks: []TrackSnapshot{{ID: "a", Spec: motion.Spec{Type: "warp"}}},
	})
	assert.ErrorIs(t, err, motion.ErrInvalidConfig)

	_, err = RestoreRegistry(RegistrySnapshot{
		Groups: []GroupSnapshot{{ID: "g", Members: []string{"ghost"}}},
	})
	assert.ErrorIs(t, err, ErrNotFound)
}
