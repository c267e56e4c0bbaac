package lock

import (
	"context"
	"sync"
)

// keyedEntry is a reference-counted mutex for one key.
type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

// KeyedMutex implements PolicyLocker with in-process per-key mutexes.
// Entries are created on demand and removed when no caller holds or waits
// on them, so the map does not grow with the number of policies ever seen.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*keyedEntry
}

// NewKeyedMutex creates a new keyed mutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{
		entries: make(map[string]*keyedEntry),
	}
}

// WithLock executes fn while holding the mutex for key.
func (k *KeyedMutex) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entry := k.acquire(key)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		k.release(key, entry)
	}()

	if err := ctx.Err(); err != nil {
		return err
	}

	return fn(ctx)
}

func (k *KeyedMutex) acquire(key string) *keyedEntry {
	k.mu.Lock()
	defer k.mu.Unlock()

	entry, ok := k.entries[key]
	if !ok {
		entry = &keyedEntry{}
		k.entries[key] = entry
	}
	entry.refs++
	return entry
}

func (k *KeyedMutex) release(key string, entry *keyedEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()

	entry.refs--
	if entry.refs == 0 {
		delete(k.entries, key)
	}
}

var _ PolicyLocker = (*KeyedMutex)(nil)
