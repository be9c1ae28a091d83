package cache

import (
	"sync"
	"time"

	"github.com/kailas-cloud/callrag/internal/domain"
	"github.com/kailas-cloud/callrag/internal/domain/retrieval"
	"github.com/kailas-cloud/callrag/internal/metrics"
)

// Semantic defaults.
const (
	DefaultSemanticThreshold = 0.85
	DefaultSemanticTTL       = 300 * time.Second
	DefaultSemanticMaxSize   = 200
)

type semEntry struct {
	query      string
	insertedAt time.Time
	embedding  []float32
	items      []retrieval.Item
}

// Semantic returns cached results for queries whose embedding is close to a prior one.
// Entries are immutable once inserted; similarity is computed outside the lock.
type Semantic struct {
	mu        sync.Mutex
	ttl       time.Duration
	max       int
	threshold float64
	now       func() time.Time
	entries   map[string]*semEntry
	hits      uint64
	misses    uint64
}

// NewSemantic creates the semantic cache. Non-positive arguments select the defaults.
func NewSemantic(threshold float64, ttl time.Duration, maxSize int) *Semantic {
	if threshold <= 0 {
		threshold = DefaultSemanticThreshold
	}
	if ttl <= 0 {
		ttl = DefaultSemanticTTL
	}
	if maxSize <= 0 {
		maxSize = DefaultSemanticMaxSize
	}
	return &Semantic{
		ttl:       ttl,
		max:       maxSize,
		threshold: threshold,
		now:       time.Now,
		entries:   make(map[string]*semEntry),
	}
}

// Lookup returns the items of the most similar live entry at or above the threshold.
// Equal similarities resolve to the most recent entry.
func (c *Semantic) Lookup(embedding []float32) ([]retrieval.Item, float64, bool) {
	if c == nil || len(embedding) == 0 {
		return nil, 0, false
	}
	c.mu.Lock()
	c.pruneLocked()
	snapshot := make([]*semEntry, 0, len(c.entries))
	for _, e := range c.entries {
		snapshot = append(snapshot, e)
	}
	c.mu.Unlock()

	var best *semEntry
	bestSim := -1.0
	for _, e := range snapshot {
		sim := domain.Cosine(embedding, e.embedding)
		if sim < c.threshold {
			continue
		}
		if sim > bestSim || (sim == bestSim && e.insertedAt.After(best.insertedAt)) {
			best, bestSim = e, sim
		}
	}

	c.mu.Lock()
	if best == nil {
		c.misses++
	} else {
		c.hits++
	}
	c.mu.Unlock()

	if best == nil {
		metrics.CacheRequestsTotal.WithLabelValues(TierSemantic, "miss").Inc()
		return nil, 0, false
	}
	metrics.CacheRequestsTotal.WithLabelValues(TierSemantic, "hit").Inc()
	return retrieval.Clone(best.items), bestSim, true
}

// Put stores items under the normalized query text.
func (c *Semantic) Put(query string, embedding []float32, items []retrieval.Item) {
	if c == nil || len(embedding) == 0 {
		return
	}
	e := &semEntry{
		query:     NormalizeQuery(query),
		embedding: append([]float32(nil), embedding...),
		items:     retrieval.Clone(items),
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pruneLocked()
	e.insertedAt = c.now()
	c.entries[e.query] = e
	for len(c.entries) > c.max {
		c.evictOldestLocked()
	}
}

// Stats returns counters and the live size.
func (c *Semantic) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pruneLocked()
	return Stats{Hits: c.hits, Misses: c.misses, Size: len(c.entries)}
}

func (c *Semantic) pruneLocked() {
	cutoff := c.now().Add(-c.ttl)
	for k, e := range c.entries {
		if !e.insertedAt.After(cutoff) {
			delete(c.entries, k)
		}
	}
}

func (c *Semantic) evictOldestLocked() {
	var oldest *semEntry
	for _, e := range c.entries {
		if oldest == nil || e.insertedAt.Before(oldest.insertedAt) {
			oldest = e
		}
	}
	if oldest != nil {
		delete(c.entries, oldest.query)
	}
}
