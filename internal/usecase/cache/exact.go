package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/callrag/internal/db"
	"github.com/kailas-cloud/callrag/internal/domain/retrieval"
	"github.com/kailas-cloud/callrag/internal/logger"
	"github.com/kailas-cloud/callrag/internal/metrics"
)

// Tier labels.
const (
	TierExact    = "exact"
	TierSemantic = "semantic"
)

// SharedStore is the optional out-of-process backing for the exact cache.
type SharedStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Exact caches post-rerank results by request fingerprint.
type Exact struct {
	ttl    time.Duration
	local  *Memory[string, []retrieval.Item]
	shared SharedStore
	prefix string

	// hits and misses count both tiers, matching the exported cache metric.
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewExact creates the exact cache. ttl <= 0 disables it. shared may be nil.
func NewExact(ttl time.Duration, maxSize int, shared SharedStore, keyPrefix string) *Exact {
	return &Exact{
		ttl:    ttl,
		local:  NewMemory[string, []retrieval.Item](ttl, maxSize),
		shared: shared,
		prefix: keyPrefix + "rc:",
	}
}

// Enabled reports whether the cache stores anything.
func (c *Exact) Enabled() bool { return c != nil && c.ttl > 0 }

// Get returns a deep copy of the cached items. Shared-store failures count as misses.
func (c *Exact) Get(ctx context.Context, key Key) ([]retrieval.Item, bool) {
	if !c.Enabled() {
		return nil, false
	}
	fp := key.Fingerprint()
	if items, ok := c.local.Peek(fp); ok {
		c.hit()
		return retrieval.Clone(items), true
	}

	if c.shared != nil {
		if items, ok := c.getShared(ctx, fp); ok {
			c.local.Set(fp, items)
			c.hit()
			return retrieval.Clone(items), true
		}
	}
	c.misses.Add(1)
	metrics.CacheRequestsTotal.WithLabelValues(TierExact, "miss").Inc()
	return nil, false
}

func (c *Exact) hit() {
	c.hits.Add(1)
	metrics.CacheRequestsTotal.WithLabelValues(TierExact, "hit").Inc()
}

// Put stores items. Failures of the shared store are logged and ignored.
func (c *Exact) Put(ctx context.Context, key Key, items []retrieval.Item) {
	if !c.Enabled() {
		return
	}
	fp := key.Fingerprint()
	stored := retrieval.Clone(items)
	c.local.Set(fp, stored)

	if c.shared == nil {
		return
	}
	data, err := json.Marshal(stored)
	if err != nil {
		logger.FromContext(ctx).Warn("Exact cache encode failed", zap.Error(err))
		return
	}
	if err := c.shared.SetWithTTL(ctx, c.prefix+fp, data, c.ttl); err != nil {
		logger.FromContext(ctx).Warn("Exact cache shared write failed", zap.Error(err))
	}
}

// Stats returns lookup counters across both tiers and the local size.
func (c *Exact) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Size: c.local.Stats().Size}
}

func (c *Exact) getShared(ctx context.Context, fp string) ([]retrieval.Item, bool) {
	data, err := c.shared.Get(ctx, c.prefix+fp)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			logger.FromContext(ctx).Warn("Exact cache shared read failed", zap.Error(err))
		}
		return nil, false
	}
	var items []retrieval.Item
	if err := json.Unmarshal(data, &items); err != nil {
		logger.FromContext(ctx).Warn("Exact cache decode failed", zap.Error(err))
		return nil, false
	}
	return items, true
}
