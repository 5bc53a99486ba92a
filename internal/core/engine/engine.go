// Package engine runs the fixed-rate animation loop. The loop is the sole
// mutator of the registry and history; every other component, including the
// OSC server's network goroutines, requests mutations by posting commands
// into the loop.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tracksync/tracksync/internal/core/geometry"
	"github.com/tracksync/tracksync/internal/core/motion"
	"github.com/tracksync/tracksync/internal/core/observability/log"
	"github.com/tracksync/tracksync/internal/core/osc"
	"github.com/tracksync/tracksync/internal/core/state"
)

// ErrStopped is returned by commands posted to an engine that has shut
// down.
var ErrStopped = errors.New("engine stopped")

const (
	DefaultTickRate     = 60
	DefaultHistoryLimit = 600
)

// broadcastQueue bounds the outbound message backlog between the tick loop
// and the sender goroutine.
const broadcastQueue = 64

// Options configures an engine. Client, Server and Store are optional; a nil
// Client disables outbound broadcast, a nil Server disables inbound control
// and a nil Store disables persistence.
type Options struct {
	TickRate      int
	HistoryLimit  int
	Client        osc.Client
	Server        *osc.Server
	Store         state.Store
	AutosaveEvery time.Duration
	Logger        log.Log
}

// Engine owns the registry, history and per-track controller parameters,
// all confined to the tick goroutine.
type Engine struct {
	opts     Options
	interval time.Duration
	logger   log.Log

	reg    *state.Registry
	hist   *state.History
	params map[string]osc.Parameters

	cmds chan func()
	out  chan osc.Message
	done chan struct{}

	subMu sync.Mutex
	subs  map[int]chan []state.AnimationState
	subID int
}

func New(opts Options) *Engine {
	if opts.TickRate <= 0 {
		opts.TickRate = DefaultTickRate
	}
	if opts.HistoryLimit == 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	if opts.Logger == nil {
		opts.Logger = log.Provide()
	}
	e := &Engine{
		opts:     opts,
		interval: time.Second / time.Duration(opts.TickRate),
		logger:   opts.Logger,
		reg:      state.NewRegistry(),
		hist:     state.NewHistory(opts.HistoryLimit),
		params:   make(map[string]osc.Parameters),
		cmds:     make(chan func(), 256),
		out:      make(chan osc.Message, broadcastQueue),
		done:     make(chan struct{}),
		subs:     make(map[int]chan []state.AnimationState),
	}
	if opts.Server != nil {
		e.routes(opts.Server)
	}
	return e
}

// Run drives the tick loop until ctx is canceled, then closes the engine's
// transports. Socket bind failures at startup are the only fatal errors.
func (e *Engine) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if e.opts.Server != nil {
		if err := e.opts.Server.Start(ctx); err != nil {
			close(e.done)
			return err
		}
	}
	e.logger.Info("engine running",
		log.Int("tick_rate", e.opts.TickRate),
		log.Duration("interval", e.interval))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		e.loop(ctx)
		return nil
	})
	if e.opts.Client != nil {
		g.Go(func() error {
			e.sender(ctx)
			return nil
		})
	}
	if e.opts.Store != nil && e.opts.AutosaveEvery > 0 {
		g.Go(func() error {
			e.autosave(ctx)
			return nil
		})
	}
	err := g.Wait()

	if e.opts.Server != nil {
		e.opts.Server.Close()
	}
	if e.opts.Client != nil {
		e.opts.Client.Close()
	}
	e.logger.Info("engine stopped")
	return err
}

func (e *Engine) loop(ctx context.Context) {
	defer close(e.done)
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-e.cmds:
			cmd()
		case <-ticker.C:
			e.tick()
		}
	}
}

// tick advances playback one fixed step. The step is the nominal interval,
// not measured wall time, so a given tick count always lands every track on
// the same position.
func (e *Engine) tick() {
	active := false
	for _, st := range e.reg.States() {
		if st.Playing {
			active = true
			break
		}
	}
	if !active {
		return
	}
	e.reg.Tick(e.interval)
	e.hist.Record(e.reg, "")

	states := e.reg.States()
	e.publish(states)
	if e.opts.Client == nil {
		return
	}
	for _, st := range states {
		t, err := e.reg.Track(st.ID)
		if err != nil {
			continue
		}
		if st.Playing || t.Playback() == state.Completed {
			e.broadcast(t.Address(), st.Position)
		}
	}
}

// broadcast queues a position message for the sender goroutine. The tick
// loop never touches the socket; when the queue is full the message is
// dropped and the next tick carries a fresher position.
func (e *Engine) broadcast(address string, p geometry.Position) {
	msg := osc.NewMessage(address,
		osc.Float32(float32(p.X)),
		osc.Float32(float32(p.Y)),
		osc.Float32(float32(p.Z)))
	select {
	case e.out <- msg:
	default:
		e.logger.Warn("broadcast queue full, dropping", log.String("address", address))
	}
}

// sender drains the broadcast queue onto the OSC client. All socket writes,
// including any TCP reconnect backoff, block here instead of the tick loop.
func (e *Engine) sender(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-e.out:
			if err := e.opts.Client.Send(msg); err != nil {
				e.logger.Warn("broadcast failed",
					log.String("address", msg.Address), log.Error(err))
			}
		}
	}
}

func (e *Engine) autosave(ctx context.Context) {
	ticker := time.NewTicker(e.opts.AutosaveEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := e.Save(ctx); err != nil && !errors.Is(err, ErrStopped) {
				e.logger.Error("autosave failed", log.Error(err))
			}
		}
	}
}

// do runs fn on the tick goroutine and waits for its result.
func (e *Engine) do(fn func() error) error {
	reply := make(chan error, 1)
	select {
	case e.cmds <- func() { reply <- fn() }:
	case <-e.done:
		return ErrStopped
	}
	select {
	case err := <-reply:
		return err
	case <-e.done:
		return ErrStopped
	}
}

// CreateTrack builds a track from a model spec and registers it.
func (e *Engine) CreateTrack(id string, spec motion.Spec) error {
	if err := osc.ValidateTrackID(id); err != nil {
		return err
	}
	return e.do(func() error {
		_, err := e.reg.NewTrack(id, spec)
		return err
	})
}

// CreateGroup registers an empty group.
func (e *Engine) CreateGroup(id string, opts ...state.GroupOption) error {
	return e.do(func() error {
		g, err := state.NewGroup(id, opts...)
		if err != nil {
			return err
		}
		return e.reg.AddGroup(g)
	})
}

// Remove deletes a track or group and drops its controller parameters.
func (e *Engine) Remove(id string) error {
	return e.do(func() error {
		if err := e.reg.Remove(id); err != nil {
			return err
		}
		delete(e.params, id)
		return nil
	})
}

func (e *Engine) AddToGroup(groupID, memberID string) error {
	return e.do(func() error { return e.reg.AddMember(groupID, memberID) })
}

func (e *Engine) RemoveFromGroup(groupID, memberID string) error {
	return e.do(func() error { return e.reg.RemoveMember(groupID, memberID) })
}

func (e *Engine) Play(id string) error {
	return e.do(func() error { return e.reg.Play(id) })
}

func (e *Engine) Pause(id string) error {
	return e.do(func() error { return e.reg.Pause(id) })
}

// Stop halts playback and rewinds to the start.
func (e *Engine) Stop(id string) error {
	return e.do(func() error { return e.reg.Reset(id) })
}

func (e *Engine) Seek(id string, progress float64) error {
	return e.do(func() error { return e.reg.Seek(id, progress) })
}

// Undo rewinds the registry one recorded tick. Restored tracks are left
// paused so the live loop does not immediately run past the restored state.
func (e *Engine) Undo() (bool, error) {
	var ok bool
	err := e.do(func() error {
		if ok = e.hist.Undo(e.reg); ok {
			e.pauseAll()
		}
		return nil
	})
	return ok, err
}

// Redo replays one undone tick, likewise leaving tracks paused.
func (e *Engine) Redo() (bool, error) {
	var ok bool
	err := e.do(func() error {
		if ok = e.hist.Redo(e.reg); ok {
			e.pauseAll()
		}
		return nil
	})
	return ok, err
}

func (e *Engine) pauseAll() {
	for _, id := range e.reg.TrackIDs() {
		if t, err := e.reg.Track(id); err == nil && t.Playback() == state.Playing {
			t.Pause()
		}
	}
}

// States returns every track's animation state as of the last tick.
func (e *Engine) States() ([]state.AnimationState, error) {
	var out []state.AnimationState
	err := e.do(func() error {
		out = e.reg.States()
		return nil
	})
	return out, err
}

func (e *Engine) Progress(id string) (float64, error) {
	var p float64
	err := e.do(func() error {
		var err error
		p, err = e.reg.Progress(id)
		return err
	})
	return p, err
}

// SetParameters validates and merges controller parameters for a track.
func (e *Engine) SetParameters(id string, p osc.Parameters) error {
	if err := osc.ValidateTrackID(id); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}
	return e.do(func() error {
		if _, err := e.reg.Track(id); err != nil {
			return err
		}
		e.params[id] = e.params[id].Merge(p)
		return nil
	})
}

// SetAxis updates one cartesian parameter axis, preserving the other two.
// Axis 0, 1, 2 map to X, Y, Z.
func (e *Engine) SetAxis(id string, axis int, value float64) error {
	if err := osc.ValidateTrackID(id); err != nil {
		return err
	}
	if axis < 0 || axis > 2 {
		return fmt.Errorf("%w: axis %d out of range", osc.ErrProtocol, axis)
	}
	return e.do(func() error {
		if _, err := e.reg.Track(id); err != nil {
			return err
		}
		var c osc.Cartesian
		if cur := e.params[id].Cartesian; cur != nil {
			c = *cur
		}
		switch axis {
		case 0:
			c.X = value
		case 1:
			c.Y = value
		case 2:
			c.Z = value
		}
		if err := c.Validate(); err != nil {
			return err
		}
		e.params[id] = e.params[id].Merge(osc.Parameters{Cartesian: &c})
		return nil
	})
}

// Query sends a track's current position out on the broadcast client under
// replyAddress. leaf selects the representation: "xyz" or "aed".
func (e *Engine) Query(id, leaf, replyAddress string) error {
	if e.opts.Client == nil {
		return fmt.Errorf("%w: no broadcast client configured for queries", osc.ErrProtocol)
	}
	var pos geometry.Position
	if err := e.do(func() error {
		t, err := e.reg.Track(id)
		if err != nil {
			return err
		}
		pos = t.State().Position
		return nil
	}); err != nil {
		return err
	}

	var args []osc.Arg
	switch leaf {
	case "xyz":
		args = []osc.Arg{
			osc.Float32(float32(pos.X)),
			osc.Float32(float32(pos.Y)),
			osc.Float32(float32(pos.Z)),
		}
	case "aed":
		az, el, dist := pos.AED()
		args = []osc.Arg{
			osc.Float32(float32(az)),
			osc.Float32(float32(el)),
			osc.Float32(float32(dist)),
		}
	default:
		return fmt.Errorf("%w: unknown query leaf %q", osc.ErrProtocol, leaf)
	}
	return e.opts.Client.Send(osc.NewMessage(replyAddress, args...))
}

// TrackState returns the controller-facing projection of a track.
func (e *Engine) TrackState(id string) (osc.TrackState, error) {
	var ts osc.TrackState
	err := e.do(func() error {
		if _, err := e.reg.Track(id); err != nil {
			return err
		}
		ts = osc.TrackState{TrackID: id, Parameters: e.params[id]}
		return nil
	})
	return ts, err
}

// Save persists a snapshot through the configured store.
func (e *Engine) Save(ctx context.Context) error {
	if e.opts.Store == nil {
		return errors.New("no store configured")
	}
	var snap state.RegistrySnapshot
	if err := e.do(func() error {
		snap = e.reg.Snapshot()
		return nil
	}); err != nil {
		return err
	}
	return e.opts.Store.Save(ctx, snap)
}

// Load replaces the registry with the stored snapshot and clears history.
func (e *Engine) Load(ctx context.Context) error {
	if e.opts.Store == nil {
		return errors.New("no store configured")
	}
	snap, err := e.opts.Store.Load(ctx)
	if err != nil {
		return err
	}
	restored, err := state.RestoreRegistry(snap)
	if err != nil {
		return err
	}
	return e.do(func() error {
		e.reg = restored
		e.hist = state.NewHistory(e.opts.HistoryLimit)
		return nil
	})
}

// SnapshotAfterStop reads the registry directly, bypassing the command
// channel. Only safe once Run has returned; while the loop is live use Save.
func (e *Engine) SnapshotAfterStop() state.RegistrySnapshot {
	<-e.done
	return e.reg.Snapshot()
}

// Subscribe returns a channel receiving the full state set after every
// active tick, plus a cancel func. Slow subscribers miss updates rather
// than stalling the loop.
func (e *Engine) Subscribe() (<-chan []state.AnimationState, func()) {
	ch := make(chan []state.AnimationState, 8)
	e.subMu.Lock()
	e.subID++
	id := e.subID
	e.subs[id] = ch
	e.subMu.Unlock()

	cancel := func() {
		e.subMu.Lock()
		if _, ok := e.subs[id]; ok {
			delete(e.subs, id)
			close(ch)
		}
		e.subMu.Unlock()
	}
	return ch, cancel
}

func (e *Engine) publish(states []state.AnimationState) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	for _, ch := range e.subs {
		select {
		case ch <- states:
		default:
		}
	}
}
