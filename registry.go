package eventrt

import (
	"sync"
)

// Registry is the process-wide (type, id) -> live instance map of spec
// §4.3: a shared, concurrent table with atomic lookup-or-insert semantics
// so that two commands racing to address the same not-yet-spawned
// aggregate never spawn two instances for it.
//
// Reads are lock-free (sync.Map); creation is guarded by a mutex with a
// double-checked lookup, the standard pattern for "read-mostly, rare
// read-modify-write" maps that sync.Map itself doesn't provide atomically.
type Registry struct {
	createMu sync.Mutex
	m        sync.Map // Ref -> *instanceHandle
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Lookup returns the live handle for ref, if any.
func (r *Registry) Lookup(ref Ref) (*instanceHandle, bool) {
	v, ok := r.m.Load(ref)
	if !ok {
		return nil, false
	}
	return v.(*instanceHandle), true
}

// LookupOrStart returns the live handle for ref, spawning one with spawn
// if none exists yet. spawn is called at most once per ref, even under
// concurrent callers.
func (r *Registry) LookupOrStart(ref Ref, spawn func() *instanceHandle) *instanceHandle {
	if h, ok := r.Lookup(ref); ok {
		return h
	}

	r.createMu.Lock()
	defer r.createMu.Unlock()

	if h, ok := r.Lookup(ref); ok {
		return h
	}

	h := spawn()
	r.m.Store(ref, h)
	return h
}

// Unregister removes ref's handle, e.g. on idle shutdown or a fatal
// conflict. A later command for the same ref will spawn a fresh instance
// and rehydrate from the store.
func (r *Registry) Unregister(ref Ref) {
	r.m.Delete(ref)
}
