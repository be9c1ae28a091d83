package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kailas-cloud/callrag/internal/db"
	"github.com/kailas-cloud/callrag/internal/domain/document"
	"github.com/kailas-cloud/callrag/internal/domain/retrieval"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock { return &fakeClock{t: time.Date(2024, 11, 1, 9, 0, 0, 0, time.UTC)} }

type mockShared struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
	setErr error
	sets   int
}

func newMockShared() *mockShared { return &mockShared{data: map[string][]byte{}} }

func (m *mockShared) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockShared) SetWithTTL(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	return nil
}

var errDown = errors.New("connection refused")

func items(ids ...string) []retrieval.Item {
	out := make([]retrieval.Item, len(ids))
	for i, id := range ids {
		out[i] = retrieval.Item{
			Document: document.Document{ID: id, Table: document.ServiceGuides, Title: "t-" + id},
			Score:    1 / float64(i+1),
		}
	}
	return out
}
