package chi

import (
	"context"

	"github.com/kailas-cloud/callrag/internal/usecase/assist"
	"github.com/kailas-cloud/callrag/internal/usecase/cache"
	healthuc "github.com/kailas-cloud/callrag/internal/usecase/health"
)

type mockAssistant struct {
	assistFn func(ctx context.Context, req assist.Request) (*assist.Response, error)
	stats    map[string]cache.Stats
	lastReq  assist.Request
}

func (m *mockAssistant) Assist(ctx context.Context, req assist.Request) (*assist.Response, error) {
	m.lastReq = req
	if m.assistFn != nil {
		return m.assistFn(ctx, req)
	}
	return &assist.Response{CorrelationID: "cid"}, nil
}

func (m *mockAssistant) CacheStats() map[string]cache.Stats { return m.stats }

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report { return m.report }
