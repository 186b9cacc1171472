package eventrt

import (
	"errors"
	"fmt"
)

var (
	// ErrConflict indicates that the expected version did not match the
	// current version in the store, typically due to concurrent writers
	// (the store's append is the only place this can happen: the
	// single-writer actor model forbids a second writer under normal
	// operation).
	ErrConflict = errors.New("eventrt: version conflict")

	// ErrStoreUnavailable indicates a transient I/O failure from the
	// store adapter. Retrying is the caller's responsibility.
	ErrStoreUnavailable = errors.New("eventrt: store unavailable")

	// ErrTimeout indicates the caller's timeout elapsed before a command
	// reply arrived. A command the aggregate had already accepted keeps
	// running to completion regardless; only the caller gives up waiting.
	// A command still waiting to be accepted when the timeout elapses is
	// not delivered.
	ErrTimeout = errors.New("eventrt: command timed out")

	// ErrUnknownAggregate indicates a Command/State call named a type
	// that was never registered with a Supervisor.
	ErrUnknownAggregate = errors.New("eventrt: unknown aggregate type")

	// ErrShuttingDown indicates a call raced an actor's exit: a command
	// or State call reached a Runtime instance (or Projection) after it
	// had already decided to stop, rather than timing out waiting on an
	// abandoned channel. The caller should retry; a retry re-spawns and
	// rehydrates the instance.
	ErrShuttingDown = errors.New("eventrt: aggregate instance is shutting down")
)

// ConflictError provides structured information about a version mismatch
// detected by Store.Append.
type ConflictError struct {
	Ref      Ref
	Expected Version
	Actual   Version
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("eventrt: version conflict on stream %s: expected=%d actual=%d",
		e.Ref.StreamID(), e.Expected, e.Actual)
}

// Is allows errors.Is(err, ErrConflict) to match this type.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}
