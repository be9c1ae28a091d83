package ingest

import (
	"context"
	"sync"

	"github.com/kailas-cloud/callrag/internal/domain"
	domdoc "github.com/kailas-cloud/callrag/internal/domain/document"
)

type mockIndexer struct {
	mu       sync.Mutex
	ensured  []domdoc.Table
	batches  [][]domdoc.Document
	ensureFn func(table domdoc.Table) error
	indexErr error
}

func (m *mockIndexer) EnsureIndex(_ context.Context, table domdoc.Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensured = append(m.ensured, table)
	if m.ensureFn != nil {
		return m.ensureFn(table)
	}
	return nil
}

func (m *mockIndexer) Index(_ context.Context, docs []domdoc.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.indexErr != nil {
		return m.indexErr
	}
	cp := make([]domdoc.Document, len(docs))
	copy(cp, docs)
	m.batches = append(m.batches, cp)
	return nil
}

func (m *mockIndexer) docs() []domdoc.Document {
	var out []domdoc.Document
	for _, b := range m.batches {
		out = append(out, b...)
	}
	return out
}

// droppingIndexer records drops and ensures in one ordered log.
type droppingIndexer struct {
	mockIndexer
	events  *[]string
	dropErr error
}

func (m *droppingIndexer) DropIndex(_ context.Context, table domdoc.Table) error {
	*m.events = append(*m.events, "drop "+string(table))
	return m.dropErr
}

func (m *droppingIndexer) EnsureIndex(ctx context.Context, table domdoc.Table) error {
	*m.events = append(*m.events, "ensure "+string(table))
	return m.mockIndexer.EnsureIndex(ctx, table)
}

type mockEmbedder struct {
	dim   int
	calls [][]string
	err   error
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.calls = append(m.calls, texts)
	if m.err != nil {
		return domain.BatchEmbeddingResult{}, m.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, m.dim)
		out[i][0] = float32(i + 1)
	}
	return domain.BatchEmbeddingResult{Embeddings: out, TotalTokens: 3 * len(texts)}, nil
}

type countingProgress struct{ n int }

func (p *countingProgress) Add(n int) error {
	p.n += n
	return nil
}
