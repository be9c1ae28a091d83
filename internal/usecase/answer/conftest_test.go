package answer

import (
	"context"
	"sync"

	"github.com/kailas-cloud/callrag/internal/domain"
	"github.com/kailas-cloud/callrag/internal/domain/document"
	"github.com/kailas-cloud/callrag/internal/domain/retrieval"
)

type mockChat struct {
	mu     sync.Mutex
	reply  string
	err    error
	called int
	last   domain.ChatRequest
}

func (m *mockChat) Chat(_ context.Context, req domain.ChatRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.called++
	m.last = req
	return m.reply, m.err
}

func guide(id, title, content string) retrieval.Item {
	return retrieval.Item{Document: document.Document{
		ID: id, Table: document.ServiceGuides, Title: title, Content: content,
	}}
}
