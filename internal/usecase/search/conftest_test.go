package search

import (
	"context"
	"sync"
	"time"

	"github.com/kailas-cloud/callrag/internal/domain/document"
	"github.com/kailas-cloud/callrag/internal/domain/scope"
)

type mockKeyword struct {
	mu      sync.Mutex
	results map[scope.Scope][]document.Hit
	errs    map[scope.Scope]error
	delay   map[scope.Scope]time.Duration
	calls   []scope.Scope
	lastExp []string
}

func (m *mockKeyword) SearchKeyword(
	ctx context.Context, sc scope.Scope, _ string, expansions []string, _ int,
) ([]document.Hit, error) {
	m.mu.Lock()
	m.calls = append(m.calls, sc)
	m.lastExp = expansions
	d := m.delay[sc]
	m.mu.Unlock()
	if d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.results[sc], m.errs[sc]
}

type mockVector struct {
	mu      sync.Mutex
	results map[scope.Scope][]document.Hit
	err     error
	called  int
}

func (m *mockVector) SearchVector(
	_ context.Context, sc scope.Scope, _ []float32, _ int,
) ([]document.Hit, error) {
	m.mu.Lock()
	m.called++
	m.mu.Unlock()
	return m.results[sc], m.err
}

func guideHit(id string, score float64) document.Hit {
	return document.Hit{Document: document.Document{ID: id, Table: document.ServiceGuides, Title: id}, Score: score}
}

func cardHit(id, name string, score float64) document.Hit {
	return document.Hit{
		Document: document.Document{
			ID: id, Table: document.CardProducts, Title: name,
			Metadata: map[string]string{document.MetaCardName: name},
		},
		Score: score,
	}
}
