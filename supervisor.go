package eventrt

import (
	"context"
	"fmt"
	"time"
)

// Supervisor owns the registry of live aggregate instances and the set
// of registered aggregate types (spec §4.4). It implements the
// "transient" restart policy: a crashed instance is never automatically
// restarted. The store is the system of record, so the next command for
// that (type, id) simply spawns a fresh instance and rehydrates.
type Supervisor struct {
	registry *Registry
	cfg      *Config
	types    map[string]spawner
}

// NewSupervisor builds a Supervisor. cfg may be nil to use framework
// defaults for every registered aggregate type.
func NewSupervisor(cfg *Config) *Supervisor {
	if cfg == nil {
		cfg = NewConfig()
	}
	return &Supervisor{
		registry: NewRegistry(),
		cfg:      cfg,
		types:    make(map[string]spawner),
	}
}

// RegisterAggregate wires one aggregate module into sup, bound to store
// and bus. It must be called once per module name before any Command or
// State call for that name.
func RegisterAggregate[S any](sup *Supervisor, store Store, bus PubSub, at AggregateType[S]) *Runtime[S] {
	rt := NewRuntime(sup.registry, store, bus, sup.cfg, at)
	sup.types[at.Name] = rt
	return rt
}

// Command dispatches cmd to the (typeName, id) aggregate instance,
// spawning it on demand, and waits up to timeout for a reply (spec
// §4.5's public Command contract).
func (sup *Supervisor) Command(ctx context.Context, typeName, id string, cmd any, timeout time.Duration) error {
	sp, ok := sup.types[typeName]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAggregate, typeName)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ref := Ref{Type: typeName, ID: id}
	h := sup.registry.LookupOrStart(ref, func() *instanceHandle { return sp.spawn(ref) })
	_, err := h.dispatch(ctx, request{kind: kindCommand, cmd: cmd, reply: make(chan response, 1)})
	return err
}

// State returns the debug-only current state of the (typeName, id)
// instance, spawning it on demand.
func (sup *Supervisor) State(ctx context.Context, typeName, id string, timeout time.Duration) (any, error) {
	sp, ok := sup.types[typeName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAggregate, typeName)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ref := Ref{Type: typeName, ID: id}
	h := sup.registry.LookupOrStart(ref, func() *instanceHandle { return sp.spawn(ref) })
	return h.dispatch(ctx, request{kind: kindState, reply: make(chan response, 1)})
}
