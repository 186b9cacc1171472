package eventrt

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"
)

// AggregateType registers one aggregate module's behavior: validate a
// command against current state (HandleCommand), and fold an event into
// a new state (HandleEvent). Both are pure functions — HandleCommand must
// not mutate state, and HandleEvent must return the new state rather than
// modify state in place, so the runtime's hydrate/replay/retry paths stay
// deterministic (spec §3 invariant 2).
type AggregateType[S any] struct {
	// Name is the stable type tag half of an aggregate's Ref, e.g.
	// "Counter".
	Name string

	// Initial returns a fresh zero state for a stream with no snapshot
	// and no events yet.
	Initial func() S

	// HandleCommand validates cmd against state and returns the events
	// it produces, or an error rejecting the command. On error, the
	// aggregate stays alive and no events are appended.
	HandleCommand func(cmd any, state S) ([]Event, error)

	// HandleEvent folds a single event into state, returning the new
	// state. Called during replay/hydration and immediately after a
	// successful HandleCommand, so it must be deterministic.
	HandleEvent func(state S, event Event) S

	// ShutdownTimeout overrides the configured idle-shutdown duration
	// for this module. Zero means "use Config".
	ShutdownTimeout time.Duration

	// SnapshotEvery overrides the configured snapshot cadence for this
	// module. Zero means "use Config".
	SnapshotEvery int

	// SnapshotOnShutdown, if true, takes a snapshot immediately before
	// an idle instance shuts down. Default false, preserving the
	// source behavior (see DESIGN.md Open Question 1).
	SnapshotOnShutdown bool
}

type requestKind int

const (
	kindCommand requestKind = iota
	kindState
)

type request struct {
	kind  requestKind
	cmd   any
	reply chan response
}

type response struct {
	state any
	err   error
}

// instanceHandle is the type-erased reference to one live aggregate
// actor. It is what the Registry stores and what Command/State talk to;
// the actor's concrete state type S never leaves the goroutine that owns
// it.
type instanceHandle struct {
	inbox chan request
	// done is closed by run() as it returns, after the instance has
	// already deregistered. A dispatch racing that exit sees it instead
	// of blocking on an abandoned inbox, and reports ErrShuttingDown
	// rather than waiting out the caller's timeout.
	done chan struct{}
}

func (h *instanceHandle) dispatch(ctx context.Context, req request) (any, error) {
	select {
	case h.inbox <- req:
	case <-h.done:
		return nil, ErrShuttingDown
	case <-ctx.Done():
		return nil, ErrTimeout
	}

	select {
	case resp := <-req.reply:
		return resp.state, resp.err
	case <-ctx.Done():
		return nil, ErrTimeout
	}
}

// spawner is the non-generic face a Supervisor uses to start instances
// of a registered aggregate type without knowing its state type S.
type spawner interface {
	typeName() string
	spawn(ref Ref) *instanceHandle
}

// Runtime is the per-aggregate-type actor factory: spec §4.5's "Aggregate
// Runtime" component, parameterized over one module's state type.
type Runtime[S any] struct {
	at     AggregateType[S]
	store  Store
	bus    PubSub
	cfg    *Config
	logger *log.Logger
	reg    *Registry
}

// NewRuntime builds a Runtime for at, bound to store and bus, resolving
// its knobs through cfg (pass nil for framework defaults).
func NewRuntime[S any](reg *Registry, store Store, bus PubSub, cfg *Config, at AggregateType[S]) *Runtime[S] {
	if cfg == nil {
		cfg = NewConfig()
	}
	return &Runtime[S]{
		at:     at,
		store:  store,
		bus:    bus,
		cfg:    cfg,
		reg:    reg,
		logger: log.New(log.Writer(), "eventrt["+at.Name+"]: ", log.LstdFlags),
	}
}

func (rt *Runtime[S]) typeName() string { return rt.at.Name }

func (rt *Runtime[S]) spawn(ref Ref) *instanceHandle {
	h := &instanceHandle{inbox: make(chan request), done: make(chan struct{})}
	go rt.run(ref, h)
	return h
}

// Command locates or spawns the (type, id) instance named by ref and
// delivers cmd synchronously, waiting up to timeout. At most one command
// is in flight per instance; others queue FIFO.
func (rt *Runtime[S]) Command(ctx context.Context, ref Ref, cmd any, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	h := rt.reg.LookupOrStart(ref, func() *instanceHandle { return rt.spawn(ref) })
	_, err := h.dispatch(ctx, request{kind: kindCommand, cmd: cmd, reply: make(chan response, 1)})
	return err
}

// State returns the current hydrated state of the (type, id) instance
// named by ref. Debug-only, but shares the same serialization lane as
// Command so it reflects any command that already completed.
func (rt *Runtime[S]) State(ctx context.Context, ref Ref, timeout time.Duration) (S, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	h := rt.reg.LookupOrStart(ref, func() *instanceHandle { return rt.spawn(ref) })
	v, err := h.dispatch(ctx, request{kind: kindState, reply: make(chan response, 1)})
	if err != nil {
		var zero S
		return zero, err
	}
	return v.(S), nil
}

// run is the actor loop: one goroutine per live aggregate instance,
// processing at most one request at a time (single-writer serialization).
func (rt *Runtime[S]) run(ref Ref, h *instanceHandle) {
	shutdownTimeout := rt.cfg.ShutdownTimeout(rt.at.Name, rt.at.ShutdownTimeout)
	snapshotEvery := rt.cfg.SnapshotEvery(rt.at.Name, rt.at.SnapshotEvery)

	var (
		state            S
		version          = VersionAll
		hydrated         bool
		eventsSinceBirth int
		blocksDone       int
	)

	idle := newIdleTimer(shutdownTimeout)
	defer close(h.done)
	defer func() {
		if r := recover(); r != nil {
			rt.logger.Printf("instance %s crashed: %v", ref.StreamID(), r)
		}
	}()
	defer idle.Stop()
	defer rt.reg.m.CompareAndDelete(ref, h)

	for {
		select {
		case req, ok := <-h.inbox:
			if !ok {
				return
			}

			if !hydrated {
				s, v, err := rt.hydrate(context.Background(), ref)
				if err != nil {
					req.reply <- response{err: err}
					idle.Reset(shutdownTimeout)
					continue
				}
				state, version = s, v
				hydrated = true
			}

			if req.kind == kindState {
				req.reply <- response{state: state}
				idle.Reset(shutdownTimeout)
				continue
			}

			newState, newVersion, fatal, err := rt.handle(context.Background(), ref, req.cmd, state, version, &eventsSinceBirth, &blocksDone, snapshotEvery)
			if fatal {
				// Deregister before replying, so a command the caller sends
				// after this reply spawns a fresh instance instead of
				// reaching this exiting one.
				rt.reg.m.CompareAndDelete(ref, h)
				req.reply <- response{err: err}
				return
			}
			req.reply <- response{err: err}
			if err == nil {
				state, version = newState, newVersion
			}
			idle.Reset(shutdownTimeout)

		case <-idle.C():
			if rt.at.SnapshotOnShutdown && hydrated {
				if err := rt.store.SaveSnapshot(context.Background(), ref, version, state); err != nil {
					rt.logger.Printf("snapshot-on-shutdown failed for %s: %v", ref.StreamID(), err)
				}
			}
			return
		}
	}
}

// hydrate loads the latest snapshot (if any) and replays every event
// after it, producing the instance's starting (state, version). Called
// on an actor's first request, and again on each later request until a
// call succeeds.
func (rt *Runtime[S]) hydrate(ctx context.Context, ref Ref) (S, Version, error) {
	state := rt.at.Initial()
	version := VersionAll

	snap, err := rt.store.LoadSnapshot(ctx, ref)
	if err != nil {
		var zero S
		return zero, VersionAll, storeErr(err)
	}
	if snap.Found {
		if s, ok := snap.State.(S); ok {
			state = s
			version = snap.Version
		} else if snap.Raw != nil {
			var decoded S
			if err := json.Unmarshal(snap.Raw, &decoded); err != nil {
				rt.logger.Printf("snapshot decode failed for %s: %v (falling back to full replay)", ref.StreamID(), err)
			} else {
				state = decoded
				version = snap.Version
			}
		}
	}

	records, err := rt.store.FetchByAggregate(ctx, ref, version)
	if err != nil {
		var zero S
		return zero, VersionAll, storeErr(err)
	}
	for _, r := range records {
		state = rt.at.HandleEvent(state, r.Event)
		version = r.StreamVersion
	}
	return state, version, nil
}

// handle runs one command through validate/fold/append/publish/snapshot.
// Returns fatal=true when the instance must crash (version conflict):
// the caller's run loop exits and deregisters, so the next command
// re-spawns and rehydrates from the store, re-establishing the
// single-writer invariant.
func (rt *Runtime[S]) handle(
	ctx context.Context,
	ref Ref,
	cmd any,
	state S,
	version Version,
	eventsSinceBirth *int,
	blocksDone *int,
	snapshotEvery int,
) (newState S, newVersion Version, fatal bool, err error) {
	events, err := rt.at.HandleCommand(cmd, state)
	if err != nil {
		return state, version, false, err
	}
	if len(events) == 0 {
		return state, version, false, nil
	}

	folded := state
	for _, e := range events {
		folded = rt.at.HandleEvent(folded, e)
	}

	expected := version
	if version == VersionAll {
		expected = ExpectedNoStream
	}

	head, records, err := rt.store.Append(ctx, ref, events, expected, nil)
	if err != nil {
		var conflict *ConflictError
		if errors.As(err, &conflict) || errors.Is(err, ErrConflict) {
			return state, version, true, err
		}
		return state, version, false, storeErr(err)
	}

	if err := rt.bus.Broadcast(ctx, records); err != nil {
		rt.logger.Printf("broadcast failed for %s: %v (store remains source of truth)", ref.StreamID(), err)
	}

	*eventsSinceBirth += len(events)
	if blocks := *eventsSinceBirth / snapshotEvery; blocks > *blocksDone {
		*blocksDone = blocks
		if err := rt.store.SaveSnapshot(ctx, ref, head, folded); err != nil {
			rt.logger.Printf("snapshot failed for %s: %v", ref.StreamID(), err)
		}
	}

	return folded, head, false, nil
}

func storeErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return errors.Join(ErrStoreUnavailable, err)
}
