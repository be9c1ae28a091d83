// Package cache implements the process-resident retrieval caches: a generic TTL map, the
// exact-request cache (optionally shared through an external KV store) and the
// embedding-similarity cache.
package cache

import (
	"sync"
	"time"
)

// Stats reports cache counters.
type Stats struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
	Size   int    `json:"size"`
}

type memEntry[V any] struct {
	value      V
	insertedAt time.Time
}

// Memory is a mutex-guarded TTL map. Expired entries are pruned on every access; when the
// size cap is exceeded the oldest entry by insertion time is evicted.
type Memory[K comparable, V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	max     int
	now     func() time.Time
	entries map[K]memEntry[V]
	hits    uint64
	misses  uint64
}

// NewMemory creates a TTL map. maxSize <= 0 disables the size cap.
func NewMemory[K comparable, V any](ttl time.Duration, maxSize int) *Memory[K, V] {
	return &Memory[K, V]{
		ttl:     ttl,
		max:     maxSize,
		now:     time.Now,
		entries: make(map[K]memEntry[V]),
	}
}

// Get returns a live entry.
func (m *Memory[K, V]) Get(key K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked()
	e, ok := m.entries[key]
	if !ok {
		m.misses++
		var zero V
		return zero, false
	}
	m.hits++
	return e.value, true
}

// Peek is Get without touching the hit and miss counters.
func (m *Memory[K, V]) Peek(key K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked()
	e, ok := m.entries[key]
	return e.value, ok
}

// Set inserts or replaces an entry, resetting its insertion time.
func (m *Memory[K, V]) Set(key K, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked()
	m.entries[key] = memEntry[V]{value: value, insertedAt: m.now()}
	for m.max > 0 && len(m.entries) > m.max {
		m.evictOldestLocked()
	}
}

// Stats returns counters and the live size.
func (m *Memory[K, V]) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked()
	return Stats{Hits: m.hits, Misses: m.misses, Size: len(m.entries)}
}

func (m *Memory[K, V]) pruneLocked() {
	if m.ttl <= 0 {
		return
	}
	cutoff := m.now().Add(-m.ttl)
	for k, e := range m.entries {
		if !e.insertedAt.After(cutoff) {
			delete(m.entries, k)
		}
	}
}

func (m *Memory[K, V]) evictOldestLocked() {
	var (
		oldest K
		at     time.Time
		found  bool
	)
	for k, e := range m.entries {
		if !found || e.insertedAt.Before(at) {
			oldest, at, found = k, e.insertedAt, true
		}
	}
	if found {
		delete(m.entries, oldest)
	}
}
