// Package keymutex provides mutual exclusion scoped to a string key.
//
// Locks are reference counted and released from the map once no goroutine
// holds or waits on them, so the set of keys can grow without bound over the
// process lifetime while memory stays proportional to active contention.
package keymutex

import (
	"context"
	"sync"
)

type entry struct {
	ch   chan struct{}
	refs int
}

// KeyMutex serializes critical sections that share a key.
type KeyMutex struct {
	mu    sync.Mutex
	locks map[string]*entry
}

func New() *KeyMutex {
	return &KeyMutex{locks: make(map[string]*entry)}
}

// Lock blocks until the key is held or ctx is done. The returned function
// releases the key and must be called exactly once on success.
func (k *KeyMutex) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
		return func() { k.release(key, e) }, nil
	case <-ctx.Done():
		k.drop(key, e)
		return nil, ctx.Err()
	}
}

func (k *KeyMutex) release(key string, e *entry) {
	<-e.ch
	k.drop(key, e)
}

func (k *KeyMutex) drop(key string, e *entry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.locks, key)
	}
}

// Len reports how many keys are currently held or awaited.
func (k *KeyMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
