package lock

import "sync"

// Keyed provides mutual exclusion per string key. Mutations touching the
// same note id serialize on one mutex; different ids proceed independently.
type Keyed struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyed builds an empty keyed lock set.
func NewKeyed() *Keyed {
	return &Keyed{locks: make(map[string]*entry)}
}

// Lock acquires the mutex for key, creating it on first use.
func (k *Keyed) Lock(key string) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
}

// Unlock releases the mutex for key. Entries are dropped once no goroutine
// holds or waits on them so the map does not grow with note count.
func (k *Keyed) Unlock(key string) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if ok {
		e.refs--
		if e.refs <= 0 {
			delete(k.locks, key)
		}
	}
	k.mu.Unlock()

	if ok {
		e.mu.Unlock()
	}
}

// WithLock runs fn while holding the mutex for key.
func (k *Keyed) WithLock(key string, fn func() error) error {
	k.Lock(key)
	defer k.Unlock(key)
	return fn()
}
