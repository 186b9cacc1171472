// Package storetest is a reusable compliance suite for eventrt.Store
// implementations, run against every adapter in this module.
package storetest

import (
	"context"
	"errors"
	"testing"

	eventrt "github.com/eventrt/eventrt"
)

type Opened struct{ ID string }

func (Opened) EventType() string { return "Opened" }

type Added struct{ N int }

func (Added) EventType() string { return "Added" }

// Factory creates a new Store instance for testing.
// Each test should receive a fresh, isolated instance.
// Use t.Cleanup for teardown logic if necessary.
type Factory func(t *testing.T) eventrt.Store

// Registry provides a minimal codec registry used by durable-adapter
// tests. It avoids a dependency on domain-specific event definitions.
func Registry() map[string]eventrt.EventCodec {
	return map[string]eventrt.EventCodec{
		"Opened": eventrt.JSONCodec[Opened](),
		"Added":  eventrt.JSONCodec[Added](),
	}
}

// Run executes a suite of compliance tests that verify a Store
// implementation adheres to the expected semantics (spec §8 properties
// 1, 3, 4, and the global-ordering half of property 6). Each subtest
// runs in parallel, so stores must be concurrency-safe.
func Run(t *testing.T, newStore Factory) {
	t.Run("append/fetch/version", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		s := newStore(t)

		ref := eventrt.Ref{Type: "Stream", ID: "1"}

		v, _, err := s.Append(ctx, ref, []eventrt.Event{Opened{ID: "1"}}, eventrt.ExpectedNoStream, nil)
		if err != nil {
			t.Fatalf("append failed: %v", err)
		}
		if v != 1 {
			t.Fatalf("expected version 1, got %d", v)
		}

		v, records, err := s.Append(ctx, ref, []eventrt.Event{Added{N: 5}}, v, nil)
		if err != nil {
			t.Fatalf("append failed: %v", err)
		}
		if v != 2 {
			t.Fatalf("expected version 2, got %d", v)
		}
		if len(records) != 1 || records[0].StreamVersion != 2 {
			t.Fatalf("expected one record at stream version 2, got %+v", records)
		}

		evs, err := s.FetchByAggregate(ctx, ref, eventrt.VersionAll)
		if err != nil {
			t.Fatalf("fetch failed: %v", err)
		}
		if len(evs) != 2 {
			t.Fatalf("expected 2 events, got %d", len(evs))
		}
		if evs[0].StreamVersion != 1 || evs[1].StreamVersion != 2 {
			t.Fatalf("expected contiguous versions 1,2; got %d,%d", evs[0].StreamVersion, evs[1].StreamVersion)
		}
	})

	t.Run("version conflict", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		s := newStore(t)
		ref := eventrt.Ref{Type: "Stream", ID: "2"}

		if _, _, err := s.Append(ctx, ref, []eventrt.Event{Opened{ID: "2"}}, eventrt.ExpectedNoStream, nil); err != nil {
			t.Fatalf("append failed: %v", err)
		}

		_, _, err := s.Append(ctx, ref, []eventrt.Event{Added{N: 1}}, eventrt.ExpectedNoStream, nil)

		var ce *eventrt.ConflictError
		if !errors.As(err, &ce) {
			t.Fatalf("expected ConflictError, got %v", err)
		}
		if !errors.Is(err, eventrt.ErrConflict) {
			t.Fatalf("expected errors.Is to match ErrConflict")
		}
	})

	t.Run("global ordering across streams", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		s := newStore(t)

		refA := eventrt.Ref{Type: "Stream", ID: "A"}
		refB := eventrt.Ref{Type: "Stream", ID: "B"}

		if _, _, err := s.Append(ctx, refA, []eventrt.Event{Opened{ID: "A"}}, eventrt.ExpectedNoStream, nil); err != nil {
			t.Fatalf("append A failed: %v", err)
		}
		if _, _, err := s.Append(ctx, refB, []eventrt.Event{Opened{ID: "B"}}, eventrt.ExpectedNoStream, nil); err != nil {
			t.Fatalf("append B failed: %v", err)
		}

		records, head, err := s.Fetch(ctx, eventrt.GlobalAll)
		if err != nil {
			t.Fatalf("fetch failed: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("expected 2 global records, got %d", len(records))
		}
		if records[0].GlobalVersion >= records[1].GlobalVersion {
			t.Fatalf("expected strictly increasing global versions, got %d then %d",
				records[0].GlobalVersion, records[1].GlobalVersion)
		}
		if head != records[1].GlobalVersion {
			t.Fatalf("expected head %d to equal last record's global version %d", head, records[1].GlobalVersion)
		}
	})

	t.Run("compare version", func(t *testing.T) {
		t.Parallel()
		s := newStore(t)

		if got := s.CompareVersion(5, 5); got != eventrt.Equal {
			t.Fatalf("expected Equal, got %s", got)
		}
		if got := s.CompareVersion(5, 4); got != eventrt.Past {
			t.Fatalf("expected Past, got %s", got)
		}
		if got := s.CompareVersion(5, 6); got != eventrt.NextOne {
			t.Fatalf("expected NextOne, got %s", got)
		}
		if got := s.CompareVersion(5, 8); got != eventrt.Future {
			t.Fatalf("expected Future, got %s", got)
		}
	})

	t.Run("snapshot round trip", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		s := newStore(t)
		ref := eventrt.Ref{Type: "Stream", ID: "snap"}

		if snap, err := s.LoadSnapshot(ctx, ref); err != nil || snap.Found {
			t.Fatalf("expected no snapshot initially, got found=%v err=%v", snap.Found, err)
		}

		if err := s.SaveSnapshot(ctx, ref, 3, map[string]any{"n": 3}); err != nil {
			t.Fatalf("save snapshot failed: %v", err)
		}

		snap, err := s.LoadSnapshot(ctx, ref)
		if err != nil {
			t.Fatalf("load snapshot failed: %v", err)
		}
		if !snap.Found || snap.Version != 3 {
			t.Fatalf("expected snapshot at version 3, got %+v", snap)
		}
	})
}
