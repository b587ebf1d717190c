// Package keymutex provides process-wide mutual exclusion keyed by an
// opaque string. Calls sharing a key run one at a time; calls with
// different keys run fully concurrently. Locks are created lazily on first
// use and dropped once the last holder or waiter is gone, so memory is
// bounded by the number of concurrently active keys rather than every key
// ever seen.
package keymutex

import "sync"

type entry struct {
	mu sync.Mutex
	// refs counts the current holder plus all waiters. Guarded by
	// KeyMutex.mu, never by entry.mu.
	refs int
}

// KeyMutex maps keys to lazily-created exclusive locks. The map itself is
// guarded by one coarse lock so two callers can never race to create
// distinct locks for the same key.
type KeyMutex struct {
	mu    sync.Mutex
	locks map[string]*entry
}

func New() *KeyMutex {
	return &KeyMutex{locks: make(map[string]*entry)}
}

// RunExclusive executes work while holding the lock for key. The error from
// work propagates unchanged; the per-key lock is released on every exit
// path, including a panic inside work. There is no timeout: a work function
// that never returns blocks all same-key callers indefinitely.
func (k *KeyMutex) RunExclusive(key string, work func() error) error {
	e := k.acquireEntry(key)

	e.mu.Lock()
	defer func() {
		e.mu.Unlock()
		k.releaseEntry(key, e)
	}()

	return work()
}

func (k *KeyMutex) acquireEntry(key string) *entry {
	k.mu.Lock()
	defer k.mu.Unlock()

	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	return e
}

func (k *KeyMutex) releaseEntry(key string, e *entry) {
	k.mu.Lock()
	defer k.mu.Unlock()

	e.refs--
	if e.refs == 0 && k.locks[key] == e {
		delete(k.locks, key)
	}
}

// ActiveKeys returns the keys that currently have a holder or waiter.
func (k *KeyMutex) ActiveKeys() []string {
	k.mu.Lock()
	defer k.mu.Unlock()

	keys := make([]string, 0, len(k.locks))
	for key := range k.locks {
		keys = append(keys, key)
	}
	return keys
}

// Len returns the number of live lock entries.
func (k *KeyMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
