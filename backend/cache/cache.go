// Package cache is the key-value backend behind the cache-operation tool.
package cache

import (
	"context"
	"sync"
	"time"
)

// Store is a key-value cache. Values must be JSON-encodable for stores
// that serialize them.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (any, bool, error)
	// Set stores value. A ttl of zero or less keeps it until forgotten.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	// Forget removes key and reports whether it existed.
	Forget(ctx context.Context, key string) (bool, error)
	// Flush removes every key.
	Flush(ctx context.Context) error
}

type entry struct {
	value     any
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Memory is an in-process Store. Expired entries are dropped lazily.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]entry), now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string) (any, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if e.expired(m.now()) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

func (m *Memory) Forget(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	delete(m.entries, key)
	return ok && !e.expired(m.now()), nil
}

func (m *Memory) Flush(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.entries)
	return nil
}
