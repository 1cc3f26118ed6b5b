// Package lock provides a mutex per key, used to serialise work for one
// customer phone number while other customers proceed.
package lock

import "sync"

// Keyed hands out one mutex per key and forgets keys nobody holds
type Keyed struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

// NewKeyed creates an empty Keyed
func NewKeyed() *Keyed {
	return &Keyed{locks: make(map[string]*refMutex)}
}

// Lock acquires key and returns its unlock function
func (k *Keyed) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// Len returns the number of keys held or waited on
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
