// Package pgx is a durable Store implementation backed by PostgreSQL.
package pgx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	eventrt "github.com/eventrt/eventrt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is a concrete Store backed by PostgreSQL (pgx). It supports
// optimistic concurrency, JSON-encoded payloads, a global append order
// (via the events table's global_version identity column), and optional
// context-derived Metadata injection via a user-supplied MetadataExtractor.
//
// Expected schema:
//
//	CREATE TABLE events (
//	    global_version BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
//	    ref_type       TEXT NOT NULL,
//	    ref_id         TEXT NOT NULL,
//	    stream_id      TEXT NOT NULL,
//	    version        BIGINT NOT NULL,
//	    event_type     TEXT NOT NULL,
//	    payload        JSONB NOT NULL,
//	    metadata       JSONB NOT NULL,
//	    at             TIMESTAMPTZ NOT NULL DEFAULT now(),
//	    UNIQUE (stream_id, version)
//	);
//	CREATE TABLE snapshots (
//	    stream_id TEXT PRIMARY KEY,
//	    version   BIGINT NOT NULL,
//	    state     JSONB NOT NULL,
//	    at        TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
type Store struct {
	pool         *pgxpool.Pool
	typeRegistry map[string]eventrt.EventCodec
	extractor    eventrt.MetadataExtractor
}

// Option configures Store.
type Option func(*Store)

// WithTypeRegistry sets the registry that maps event type names to codecs.
func WithTypeRegistry(reg map[string]eventrt.EventCodec) Option {
	return func(s *Store) { s.typeRegistry = reg }
}

// WithMetadataExtractor sets a function that builds Metadata from context.
// When provided, Append merges extracted metadata with the explicit md;
// explicit keys take precedence over extracted ones.
func WithMetadataExtractor(ex eventrt.MetadataExtractor) Option {
	return func(s *Store) { s.extractor = ex }
}

// New creates a Postgres-backed Store.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	s := &Store{
		pool:         pool,
		typeRegistry: map[string]eventrt.EventCodec{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append persists a batch of events using optimistic concurrency control.
func (s *Store) Append(
	ctx context.Context,
	ref eventrt.Ref,
	events []eventrt.Event,
	expected eventrt.Version,
	md eventrt.Metadata,
) (eventrt.Version, []eventrt.Record, error) {
	if s.extractor != nil {
		md = s.extractor(ctx).Merge(md)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("eventrt-pgx: could not begin transaction: %w: %w", eventrt.ErrStoreUnavailable, err)
	}
	defer func(tx pgx.Tx, ctx context.Context) {
		_ = tx.Rollback(ctx)
	}(tx, ctx)

	streamID := ref.StreamID()

	var currentRaw int64
	if err := tx.QueryRow(
		ctx,
		`SELECT COALESCE(MAX(version), 0) FROM events WHERE stream_id = $1`,
		streamID,
	).Scan(&currentRaw); err != nil {
		return 0, nil, fmt.Errorf("eventrt-pgx: could not get current version: %w: %w", eventrt.ErrStoreUnavailable, err)
	}
	current := eventrt.Version(currentRaw)

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
		if err := tx.Commit(ctx); err != nil {
			return 0, nil, fmt.Errorf("eventrt-pgx: could not commit transaction: %w: %w", eventrt.ErrStoreUnavailable, err)
		}
		return current, nil, nil
	}

	meta, err := json.Marshal(md)
	if err != nil {
		return 0, nil, fmt.Errorf("eventrt-pgx: could not encode metadata: %w", err)
	}

	out := make([]eventrt.Record, 0, len(events))
	for _, e := range events {
		eventType := eventrt.EventType(e)
		codec := s.typeRegistry[eventType]
		if codec == nil {
			return 0, nil, fmt.Errorf("eventrt-pgx: no codec registered for event type %q", eventType)
		}

		payload, err := codec.Encode(e)
		if err != nil {
			return 0, nil, fmt.Errorf("eventrt-pgx: could not encode event: %w", err)
		}

		current++

		var global int64
		var at time.Time
		if err := tx.QueryRow(
			ctx,
			`
			INSERT INTO events (ref_type, ref_id, stream_id, version, event_type, payload, metadata)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING global_version, at
			`,
			ref.Type, ref.ID, streamID, int64(current), eventType, payload, meta,
		).Scan(&global, &at); err != nil {
			if isUniqueViolation(err) {
				return 0, nil, &eventrt.ConflictError{Ref: ref, Expected: expected, Actual: current - 1}
			}
			return 0, nil, fmt.Errorf("eventrt-pgx: could not insert event: %w: %w", eventrt.ErrStoreUnavailable, err)
		}

		out = append(out, eventrt.Record{
			Ref:           ref,
			StreamVersion: current,
			GlobalVersion: eventrt.GlobalVersion(global),
			Event:         e,
			Metadata:      md,
			At:            at,
		})
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, nil, fmt.Errorf("eventrt-pgx: could not commit transaction: %w: %w", eventrt.ErrStoreUnavailable, err)
	}
	return current, out, nil
}

// Fetch returns every record whose global position is strictly greater
// than from, across all streams, in global order.
func (s *Store) Fetch(ctx context.Context, from eventrt.GlobalVersion) ([]eventrt.Record, eventrt.GlobalVersion, error) {
	rows, err := s.pool.Query(
		ctx,
		`
		SELECT global_version, ref_type, ref_id, version, event_type, payload, metadata, at
		FROM events
		WHERE global_version > $1
		ORDER BY global_version ASC
		`,
		int64(from),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("eventrt-pgx: could not query events: %w", err)
	}
	defer rows.Close()

	out, err := s.scanRecords(rows)
	if err != nil {
		return nil, 0, err
	}

	var headRaw int64
	if err := s.pool.QueryRow(ctx, `SELECT COALESCE(MAX(global_version), 0) FROM events`).Scan(&headRaw); err != nil {
		return nil, 0, fmt.Errorf("eventrt-pgx: could not get head version: %w", err)
	}
	return out, eventrt.GlobalVersion(headRaw), nil
}

// FetchByAggregate returns every record for ref whose stream version is
// strictly greater than from, ordered by stream version.
func (s *Store) FetchByAggregate(ctx context.Context, ref eventrt.Ref, from eventrt.Version) ([]eventrt.Record, error) {
	rows, err := s.pool.Query(
		ctx,
		`
		SELECT global_version, ref_type, ref_id, version, event_type, payload, metadata, at
		FROM events
		WHERE stream_id = $1 AND version > $2
		ORDER BY version ASC
		`,
		ref.StreamID(), int64(from),
	)
	if err != nil {
		return nil, fmt.Errorf("eventrt-pgx: could not query events: %w", err)
	}
	defer rows.Close()

	return s.scanRecords(rows)
}

func (s *Store) scanRecords(rows pgx.Rows) ([]eventrt.Record, error) {
	var out []eventrt.Record
	for rows.Next() {
		var global, version int64
		var refType, refID, eventType string
		var payload, meta []byte
		var at time.Time

		if err := rows.Scan(&global, &refType, &refID, &version, &eventType, &payload, &meta, &at); err != nil {
			return nil, fmt.Errorf("eventrt-pgx: could not scan event: %w", err)
		}

		codec := s.typeRegistry[eventType]
		if codec == nil {
			return nil, fmt.Errorf("eventrt-pgx: no codec registered for event type %q", eventType)
		}
		ev, err := codec.Decode(payload)
		if err != nil {
			return nil, fmt.Errorf("eventrt-pgx: could not decode event: %w", err)
		}

		var md eventrt.Metadata
		if err := json.Unmarshal(meta, &md); err != nil {
			return nil, fmt.Errorf("eventrt-pgx: could not decode metadata: %w", err)
		}

		out = append(out, eventrt.Record{
			Ref:           eventrt.Ref{Type: refType, ID: refID},
			StreamVersion: eventrt.Version(version),
			GlobalVersion: eventrt.GlobalVersion(global),
			Event:         ev,
			Metadata:      md,
			At:            at,
		})
	}
	return out, rows.Err()
}

// SaveSnapshot upserts the snapshot state for a stream at a given version.
// Snapshots are an optimization for fast rehydration and are safe to treat
// as a cache—failure to save should not compromise domain consistency.
func (s *Store) SaveSnapshot(ctx context.Context, ref eventrt.Ref, version eventrt.Version, state any) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(
		ctx,
		`
		INSERT INTO snapshots (stream_id, version, state)
		VALUES ($1, $2, $3)
		ON CONFLICT (stream_id) DO UPDATE
		SET version = EXCLUDED.version,
		    state   = EXCLUDED.state,
		    at      = now()
		`,
		ref.StreamID(), int64(version), data,
	)
	return err
}

// LoadSnapshot retrieves the latest snapshot for a stream. If not found, Found=false.
// The State is returned as a generic structure (typically map[string]any) since the
// store does not enforce a concrete aggregate type; callers re-decode it themselves.
func (s *Store) LoadSnapshot(ctx context.Context, ref eventrt.Ref) (eventrt.Snapshot, error) {
	row := s.pool.QueryRow(
		ctx,
		`SELECT version, state, at FROM snapshots WHERE stream_id = $1`,
		ref.StreamID(),
	)

	var version int64
	var raw []byte
	var at time.Time

	if err := row.Scan(&version, &raw, &at); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return eventrt.Snapshot{Found: false}, nil
		}
		return eventrt.Snapshot{}, fmt.Errorf("eventrt-pgx: could not scan snapshot: %w", err)
	}

	var state map[string]any
	if err := json.Unmarshal(raw, &state); err != nil {
		return eventrt.Snapshot{}, fmt.Errorf("eventrt-pgx: could not unmarshal snapshot: %w", err)
	}

	return eventrt.Snapshot{
		State:   state,
		Version: eventrt.Version(version),
		Found:   true,
		At:      at,
		Raw:     raw,
	}, nil
}

// CompareVersion implements the projection gap detector over the
// events table's global_version identity column, a plain monotonic
// counter like every other adapter in this module.
func (s *Store) CompareVersion(a, b eventrt.GlobalVersion) eventrt.Comparison {
	return eventrt.CompareGlobalVersion(a, b)
}

var _ eventrt.Store = (*Store)(nil)
