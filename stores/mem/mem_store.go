// Package mem is an in-memory Store implementation.
package mem

import (
	"context"
	"sync"
	"time"

	eventrt "github.com/eventrt/eventrt"
)

// Store is an in-memory Store implementation.
// It is concurrency-safe and suitable for tests, prototypes, and local runs.
// NOTE: events and snapshots are kept in-process and will be lost on restart.
type Store struct {
	mu            sync.RWMutex
	streams       map[string][]eventrt.Record // StreamID -> ordered records
	global        []eventrt.Record            // every record, in global append order
	snapshots     map[string]eventrt.Snapshot
	globalCounter eventrt.GlobalVersion
	extractor     eventrt.MetadataExtractor
}

// Option configures the in-memory Store.
type Option func(*Store)

// WithMetadataExtractor sets a function that builds Metadata from context.
// When provided, Append merges extracted metadata with the explicit md;
// explicit keys take precedence over extracted ones.
func WithMetadataExtractor(ex eventrt.MetadataExtractor) Option {
	return func(s *Store) { s.extractor = ex }
}

// New creates a new in-memory Store.
func New(opts ...Option) *Store {
	st := &Store{
		streams:   make(map[string][]eventrt.Record),
		snapshots: make(map[string]eventrt.Snapshot),
	}
	for _, opt := range opts {
		opt(st)
	}
	return st
}

// Append persists a batch of events using optimistic concurrency control.
//
// Semantics:
//   - expected must equal the current persisted version for ref, unless it
//     is ExpectedAny (skip the check) or ExpectedNoStream (stream must be
//     empty).
//   - On mismatch, returns *eventrt.ConflictError (errors.Is-compatible
//     with eventrt.ErrConflict).
//   - Returns the new stream head version and the assigned Records.
func (s *Store) Append(
	ctx context.Context,
	ref eventrt.Ref,
	events []eventrt.Event,
	expected eventrt.Version,
	md eventrt.Metadata,
) (eventrt.Version, []eventrt.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.extractor != nil {
		md = s.extractor(ctx).Merge(md)
	}

	streamID := ref.StreamID()
	seq := s.streams[streamID]
	current := eventrt.Version(len(seq))

	if expected != eventrt.ExpectedAny {
		required := expected
		if expected == eventrt.ExpectedNoStream {
			required = eventrt.VersionAll
		}
		if current != required {
			return 0, nil, &eventrt.ConflictError{Ref: ref, Expected: required, Actual: current}
		}
	}

	if len(events) == 0 {
		return current, nil, nil
	}

	now := time.Now()
	out := make([]eventrt.Record, 0, len(events))
	for _, e := range events {
		current++
		s.globalCounter++
		rec := eventrt.Record{
			Ref:           ref,
			StreamVersion: current,
			GlobalVersion: s.globalCounter,
			Event:         e,
			Metadata:      md,
			At:            now,
		}
		seq = append(seq, rec)
		s.global = append(s.global, rec)
		out = append(out, rec)
	}
	s.streams[streamID] = seq
	return current, out, nil
}

// Fetch returns every record whose global position is strictly greater
// than from, across all streams, in global order.
func (s *Store) Fetch(_ context.Context, from eventrt.GlobalVersion) ([]eventrt.Record, eventrt.GlobalVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	head := s.globalCounter
	out := make([]eventrt.Record, 0)
	for _, r := range s.global {
		if r.GlobalVersion > from {
			out = append(out, r)
		}
	}
	return out, head, nil
}

// FetchByAggregate returns every record for ref whose stream version is
// strictly greater than from, ordered by stream version.
func (s *Store) FetchByAggregate(_ context.Context, ref eventrt.Ref, from eventrt.Version) ([]eventrt.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seq := s.streams[ref.StreamID()]
	if len(seq) == 0 {
		return nil, nil
	}

	start := int(from)
	if start < 0 {
		start = 0
	}
	if start > len(seq) {
		start = len(seq)
	}

	out := make([]eventrt.Record, len(seq)-start)
	copy(out, seq[start:])
	return out, nil
}

// SaveSnapshot upserts the snapshot for a stream at a given version.
func (s *Store) SaveSnapshot(_ context.Context, ref eventrt.Ref, version eventrt.Version, state any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots[ref.StreamID()] = eventrt.Snapshot{
		State:   state,
		Version: version,
		Found:   true,
		At:      time.Now(),
	}
	return nil
}

// LoadSnapshot retrieves the latest snapshot for ref, if any.
func (s *Store) LoadSnapshot(_ context.Context, ref eventrt.Ref) (eventrt.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[ref.StreamID()]
	if !ok {
		return eventrt.Snapshot{Found: false}, nil
	}
	return snap, nil
}

// CompareVersion implements the projection gap detector over the plain
// monotonic global counter this store assigns.
func (s *Store) CompareVersion(a, b eventrt.GlobalVersion) eventrt.Comparison {
	return eventrt.CompareGlobalVersion(a, b)
}

var _ eventrt.Store = (*Store)(nil)
