package lock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyedSerializesSameKey(t *testing.T) {
	k := NewKeyed()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = k.WithLock("note-1", func() error {
				counter++
				return nil
			})
		}()
	}
	wg.Wait()
	require.Equal(t, 50, counter)
}

func TestKeyedReleasesEntries(t *testing.T) {
	k := NewKeyed()
	k.Lock("note-1")
	k.Unlock("note-1")

	k.mu.Lock()
	defer k.mu.Unlock()
	require.Empty(t, k.locks)
}
