package eventrt

import (
	"context"
)

// Store defines the interface for persisting and retrieving events in an
// event-sourced system.
//
// It is the abstraction that lets an aggregate record domain events (via
// Append) and rebuild its state (via FetchByAggregate), and lets a
// projection catch up on everything it has missed (via Fetch) and
// distinguish stale/duplicate/missing records (via CompareVersion).
//
// Implementations may persist events to an in-process map, PostgreSQL, or
// any other durable backend. All operations must be safe for concurrent
// use, and Append must be atomic: either every event in the batch is
// durable with its stream_version/global_version assigned, or none are.
type Store interface {
	// Append writes a batch of events to the stream identified by ref.
	//
	// expected is the caller's assumption about the stream's current
	// head: ExpectedAny skips the check, ExpectedNoStream asserts the
	// stream is empty, any other Version requires an exact match.
	//
	// md is attached to every Record produced by this call, merged with
	// whatever the adapter's configured MetadataExtractor derives from
	// ctx (explicit keys win).
	//
	// On success, returns the new stream head version and the Records
	// assigned to the appended events, in append order. On a version
	// mismatch, returns a *ConflictError (errors.Is(err, ErrConflict)
	// matches it). On a transient adapter failure, returns
	// ErrStoreUnavailable.
	Append(ctx context.Context, ref Ref, events []Event, expected Version, md Metadata) (Version, []Record, error)

	// Fetch returns every Record whose global position is strictly
	// greater than from, in global order, across all streams. from =
	// GlobalAll yields the entire store. Also returns the new head
	// global version (GlobalAll if the store is empty).
	Fetch(ctx context.Context, from GlobalVersion) ([]Record, GlobalVersion, error)

	// FetchByAggregate returns every Record for ref whose stream
	// position is strictly greater than from, ordered by stream
	// version. from = VersionAll yields the whole stream.
	FetchByAggregate(ctx context.Context, ref Ref, from Version) ([]Record, error)

	// SaveSnapshot overwrites the single snapshot kept for ref. Safe to
	// treat as a cache: failure to save does not compromise correctness,
	// only hydration speed.
	SaveSnapshot(ctx context.Context, ref Ref, version Version, state any) error

	// LoadSnapshot retrieves the latest snapshot for ref. If none
	// exists, the returned Snapshot has Found=false.
	LoadSnapshot(ctx context.Context, ref Ref) (Snapshot, error)

	// CompareVersion reports how b relates to a: the projection
	// pipeline's gap detector (see Comparison).
	CompareVersion(a, b GlobalVersion) Comparison
}
