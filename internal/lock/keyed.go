// internal/lock/keyed.go
package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"brokerage-ledger/internal/util"
)

// entry is a one-slot semaphore shared by every waiter on a key.
type entry struct {
	sem  chan struct{}
	refs int
}

// KeyedMutex serializes work per key (one account = one key) with a bounded wait.
// Entries are dropped once no holder or waiter references them.
type KeyedMutex struct {
	mu      sync.Mutex // protects entries
	entries map[string]*entry
}

// NewKeyedMutex creates an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[string]*entry)}
}

// Acquire locks key, waiting at most timeout. It returns util.ErrContention when the
// wait expires and the context error when ctx is done first. The returned release
// func must be called exactly once.
func (k *KeyedMutex) Acquire(ctx context.Context, key string, timeout time.Duration) (func(), error) {
	e := k.ref(key)

	// Fast path, no timer.
	select {
	case e.sem <- struct{}{}:
		return k.releaser(key, e), nil
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case e.sem <- struct{}{}:
		return k.releaser(key, e), nil
	case <-timer.C:
		k.unref(key, e)
		return nil, fmt.Errorf("lock %s: waited %s: %w", key, timeout, util.ErrContention)
	case <-ctx.Done():
		k.unref(key, e)
		return nil, fmt.Errorf("lock %s: %w", key, ctx.Err())
	}
}

func (k *KeyedMutex) ref(key string) *entry {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		k.entries[key] = e
	}
	e.refs++
	return e
}

func (k *KeyedMutex) unref(key string, e *entry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
}

func (k *KeyedMutex) releaser(key string, e *entry) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			k.unref(key, e)
		})
	}
}

// Len returns the number of keys currently held or waited on.
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
