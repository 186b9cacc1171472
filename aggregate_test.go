package eventrt

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeStore is a minimal in-package Store used to exercise Runtime without
// pulling in any of the durable adapter submodules.
type fakeStore struct {
	mu        sync.Mutex
	streams   map[string][]Record
	global    []Record
	snapshots map[string]Snapshot
	counter   GlobalVersion

	// rejectNextAppend, if set, causes the next Append to fail with a
	// ConflictError regardless of expected, to simulate a racing writer.
	rejectNextAppend bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		streams:   make(map[string][]Record),
		snapshots: make(map[string]Snapshot),
	}
}

func (s *fakeStore) Append(_ context.Context, ref Ref, events []Event, expected Version, md Metadata) (Version, []Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rejectNextAppend {
		s.rejectNextAppend = false
		current := Version(len(s.streams[ref.StreamID()]))
		return 0, nil, &ConflictError{Ref: ref, Expected: expected, Actual: current}
	}

	key := ref.StreamID()
	seq := s.streams[key]
	current := Version(len(seq))

	if expected != ExpectedAny {
		required := expected
		if expected == ExpectedNoStream {
			required = VersionAll
		}
		if current != required {
			return 0, nil, &ConflictError{Ref: ref, Expected: required, Actual: current}
		}
	}

	out := make([]Record, 0, len(events))
	now := time.Now()
	for _, e := range events {
		current++
		s.counter++
		rec := Record{Ref: ref, StreamVersion: current, GlobalVersion: s.counter, Event: e, Metadata: md, At: now}
		seq = append(seq, rec)
		s.global = append(s.global, rec)
		out = append(out, rec)
	}
	s.streams[key] = seq
	return current, out, nil
}

func (s *fakeStore) Fetch(_ context.Context, from GlobalVersion) ([]Record, GlobalVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Record, 0)
	for _, r := range s.global {
		if r.GlobalVersion > from {
			out = append(out, r)
		}
	}
	return out, s.counter, nil
}

func (s *fakeStore) FetchByAggregate(_ context.Context, ref Ref, from Version) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.streams[ref.StreamID()]
	start := int(from)
	if start > len(seq) {
		start = len(seq)
	}
	out := make([]Record, len(seq)-start)
	copy(out, seq[start:])
	return out, nil
}

func (s *fakeStore) SaveSnapshot(_ context.Context, ref Ref, version Version, state any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[ref.StreamID()] = Snapshot{State: state, Version: version, Found: true, At: time.Now()}
	return nil
}

func (s *fakeStore) LoadSnapshot(_ context.Context, ref Ref) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snapshots[ref.StreamID()]
	if !ok {
		return Snapshot{Found: false}, nil
	}
	return snap, nil
}

func (s *fakeStore) CompareVersion(a, b GlobalVersion) Comparison {
	return CompareGlobalVersion(a, b)
}

var _ Store = (*fakeStore)(nil)

// fakeBus is a minimal in-package PubSub, synchronous like bus/local.
type fakeBus struct {
	mu   sync.Mutex
	subs map[int]Subscriber
	next int
}

func newFakeBus() *fakeBus {
	return &fakeBus{subs: make(map[int]Subscriber)}
}

func (b *fakeBus) Subscribe(sub Subscriber) func() {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = sub
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

func (b *fakeBus) Broadcast(_ context.Context, records []Record) error {
	b.mu.Lock()
	subs := make([]Subscriber, 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()
	for _, sub := range subs {
		sub.Receive(records)
	}
	return nil
}

var _ PubSub = (*fakeBus)(nil)

// counterState/counterCreated/counterIncremented is a trivial
// create+increment aggregate used throughout these tests, independent of
// example/counter so the core package has no test-only dependency on it.
type counterState struct {
	created bool
	value   int
}

type counterCreated struct{ ID string }
type counterIncremented struct{ By int }

var (
	errAlreadyCreated = fakeErr("already created")
	errNotCreated     = fakeErr("not created")
	errUnknownCommand = fakeErr("unknown command")
)

type fakeErr string

func (e fakeErr) Error() string { return string(e) }

func newCounterType() AggregateType[counterState] {
	return AggregateType[counterState]{
		Name:    "TestCounter",
		Initial: func() counterState { return counterState{} },
		HandleCommand: func(cmd any, state counterState) ([]Event, error) {
			switch c := cmd.(type) {
			case counterCreated:
				if state.created {
					return nil, errAlreadyCreated
				}
				return []Event{c}, nil
			case counterIncremented:
				if !state.created {
					return nil, errNotCreated
				}
				return []Event{c}, nil
			}
			return nil, errUnknownCommand
		},
		HandleEvent: func(state counterState, event Event) counterState {
			switch e := event.(type) {
			case counterCreated:
				state.created = true
			case counterIncremented:
				state.value += e.By
			}
			return state
		},
	}
}

func TestRuntime_ReplayIsDeterministic(t *testing.T) {
	store := newFakeStore()
	bus := newFakeBus()
	reg := NewRegistry()
	rt := NewRuntime(reg, store, bus, nil, newCounterType())

	ctx := context.Background()
	ref := Ref{Type: "TestCounter", ID: "1"}

	require.NoError(t, rt.Command(ctx, ref, counterCreated{ID: "1"}, time.Second))
	for i := 0; i < 5; i++ {
		require.NoError(t, rt.Command(ctx, ref, counterIncremented{By: 2}, time.Second))
	}

	reg.Unregister(ref) // force the next State call to rehydrate from scratch

	state, err := rt.State(ctx, ref, time.Second)
	require.NoError(t, err)
	require.Equal(t, 10, state.value)
}

func TestRuntime_SnapshotEquivalence(t *testing.T) {
	store := newFakeStore()
	bus := newFakeBus()
	reg := NewRegistry()
	at := newCounterType()
	at.SnapshotEvery = 2
	rt := NewRuntime(reg, store, bus, nil, at)

	ctx := context.Background()
	ref := Ref{Type: "TestCounter", ID: "snap"}

	require.NoError(t, rt.Command(ctx, ref, counterCreated{ID: "snap"}, time.Second))
	for i := 0; i < 3; i++ {
		require.NoError(t, rt.Command(ctx, ref, counterIncremented{By: 1}, time.Second))
	}

	snap, err := store.LoadSnapshot(ctx, ref)
	require.NoError(t, err)
	require.True(t, snap.Found, "expected a snapshot to have been taken at the configured cadence")

	// A fresh instance rehydrated from that snapshot plus any delta events
	// must land on the same state a full from-scratch replay would.
	reg.Unregister(ref)
	fromSnapshot, err := rt.State(ctx, ref, time.Second)
	require.NoError(t, err)

	// The replay runtime reads a copy of the event log with no snapshots,
	// so its hydration folds every event from the start of the stream.
	replayStore := newFakeStore()
	store.mu.Lock()
	for k, seq := range store.streams {
		replayStore.streams[k] = append([]Record(nil), seq...)
	}
	replayStore.global = append([]Record(nil), store.global...)
	replayStore.counter = store.counter
	store.mu.Unlock()

	bareReg := NewRegistry()
	bareRT := NewRuntime(bareReg, replayStore, newFakeBus(), nil, newCounterType())
	fromReplay, err := bareRT.State(ctx, ref, time.Second)
	require.NoError(t, err)

	require.Equal(t, fromReplay, fromSnapshot)
	require.Equal(t, 3, fromSnapshot.value)
}

func TestRuntime_CommandsAreSerializedPerStream(t *testing.T) {
	store := newFakeStore()
	bus := newFakeBus()
	reg := NewRegistry()
	rt := NewRuntime(reg, store, bus, nil, newCounterType())

	ctx := context.Background()
	ref := Ref{Type: "TestCounter", ID: "order"}

	require.NoError(t, rt.Command(ctx, ref, counterCreated{ID: "order"}, time.Second))

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = rt.Command(ctx, ref, counterIncremented{By: 1}, time.Second)
		}()
	}
	wg.Wait()

	records, err := store.FetchByAggregate(ctx, ref, VersionAll)
	require.NoError(t, err)
	require.Len(t, records, n+1, "create + %d concurrent increments", n)
	for i, r := range records {
		require.Equal(t, Version(i+1), r.StreamVersion, "stream versions must be contiguous despite concurrent callers")
	}
}

func TestRuntime_ConflictingAppendCrashesInstanceAndRetryRehydrates(t *testing.T) {
	store := newFakeStore()
	bus := newFakeBus()
	reg := NewRegistry()
	rt := NewRuntime(reg, store, bus, nil, newCounterType())

	ctx := context.Background()
	ref := Ref{Type: "TestCounter", ID: "conflict"}

	require.NoError(t, rt.Command(ctx, ref, counterCreated{ID: "conflict"}, time.Second))

	store.mu.Lock()
	store.rejectNextAppend = true
	store.mu.Unlock()

	err := rt.Command(ctx, ref, counterIncremented{By: 1}, time.Second)
	require.Error(t, err)
	var ce *ConflictError
	require.ErrorAs(t, err, &ce)

	// The instance crashed and deregistered on the conflict; the next
	// command must re-spawn and rehydrate from the store rather than stay
	// stuck, and the dropped increment must not have taken effect.
	require.NoError(t, rt.Command(ctx, ref, counterIncremented{By: 4}, time.Second))

	state, err := rt.State(ctx, ref, time.Second)
	require.NoError(t, err)
	require.Equal(t, 4, state.value)
}

func TestRuntime_IdleShutdownThenResumeRehydrates(t *testing.T) {
	store := newFakeStore()
	bus := newFakeBus()
	reg := NewRegistry()
	at := newCounterType()
	at.ShutdownTimeout = 10 * time.Millisecond
	rt := NewRuntime(reg, store, bus, nil, at)

	ctx := context.Background()
	ref := Ref{Type: "TestCounter", ID: "idle"}

	require.NoError(t, rt.Command(ctx, ref, counterCreated{ID: "idle"}, time.Second))
	require.NoError(t, rt.Command(ctx, ref, counterIncremented{By: 7}, time.Second))

	require.Eventually(t, func() bool {
		_, ok := reg.Lookup(ref)
		return !ok
	}, time.Second, 5*time.Millisecond, "expected the instance to shut down after idling")

	require.NoError(t, rt.Command(ctx, ref, counterIncremented{By: 3}, time.Second))
	state, err := rt.State(ctx, ref, time.Second)
	require.NoError(t, err)
	require.Equal(t, 10, state.value)
}
