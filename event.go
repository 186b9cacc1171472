package eventrt

import (
	"fmt"
)

// Event is a semantic alias of `any` that represents a domain event payload.
// The core never inspects its contents; it is opaque to everything except
// the aggregate/projection that produced or folds it.
type Event any

// EventType returns the canonical name for a given event.
// If the event implements `EventType() string`, that value is used.
// Otherwise, it falls back to the Go type name (e.g., "counter.Incremented").
func EventType(e Event) string {
	if named, ok := e.(interface{ EventType() string }); ok {
		return named.EventType()
	}
	return fmt.Sprintf("%T", e)
}
