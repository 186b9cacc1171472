package eventrt

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_LookupOrStartSpawnsAtMostOnce(t *testing.T) {
	reg := NewRegistry()
	ref := Ref{Type: "Counter", ID: "1"}

	var spawnCount int
	var mu sync.Mutex
	spawn := func() *instanceHandle {
		mu.Lock()
		spawnCount++
		mu.Unlock()
		return &instanceHandle{inbox: make(chan request)}
	}

	const n = 50
	var wg sync.WaitGroup
	handles := make([]*instanceHandle, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			handles[i] = reg.LookupOrStart(ref, spawn)
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, spawnCount, "spawn must run at most once per ref under concurrent callers")
	for _, h := range handles {
		require.Same(t, handles[0], h, "every caller must observe the same instance")
	}
}

func TestRegistry_UnregisterAllowsRespawn(t *testing.T) {
	reg := NewRegistry()
	ref := Ref{Type: "Counter", ID: "1"}

	first := reg.LookupOrStart(ref, func() *instanceHandle { return &instanceHandle{inbox: make(chan request)} })
	reg.Unregister(ref)

	_, ok := reg.Lookup(ref)
	require.False(t, ok, "expected the handle to be gone after Unregister")

	second := reg.LookupOrStart(ref, func() *instanceHandle { return &instanceHandle{inbox: make(chan request)} })
	require.NotSame(t, first, second, "a fresh LookupOrStart after Unregister must spawn a new instance")
}
