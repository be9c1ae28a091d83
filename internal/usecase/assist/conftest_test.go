package assist

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/kailas-cloud/callrag/internal/domain"
	"github.com/kailas-cloud/callrag/internal/domain/document"
	"github.com/kailas-cloud/callrag/internal/domain/scope"
	"github.com/kailas-cloud/callrag/internal/domain/vocab"
	"github.com/kailas-cloud/callrag/internal/usecase/answer"
	"github.com/kailas-cloud/callrag/internal/usecase/cache"
	"github.com/kailas-cloud/callrag/internal/usecase/extract"
	"github.com/kailas-cloud/callrag/internal/usecase/gating"
	"github.com/kailas-cloud/callrag/internal/usecase/pin"
	"github.com/kailas-cloud/callrag/internal/usecase/rerank"
	"github.com/kailas-cloud/callrag/internal/usecase/search"
)

var corpus = []document.Document{
	{ID: "card_narasarang", Table: document.CardProducts, Title: "나라사랑카드",
		Content: "나라사랑카드는 군 장병 전용 카드로 연회비가 없습니다."},
	{ID: "narasarang_faq_006", Table: document.ServiceGuides, Title: "나라사랑카드 재발급 안내",
		Content: "나라사랑카드 재발급은 앱에서 신청하며 5영업일 이내 배송됩니다."},
	{ID: "card_fees_rates_merged", Table: document.ServiceGuides, Title: "카드 수수료 및 이율",
		Content: "리볼빙 수수료율은 연 5.6%에서 18.9% 사이입니다."},
	{ID: "card_loss_report_merged", Table: document.ServiceGuides, Title: "분실신고 안내",
		Content: "분실 즉시 신고하시면 부정 사용을 막을 수 있습니다."},
	{ID: "sinhan_terms_credit_신용카드_개인회원_약관_039", Table: document.ServiceGuides,
		Title: "신용카드 개인회원 약관 제39조", Content: "리볼빙 결제 시 이자는 일할 계산합니다."},
	{ID: "hyundai_applepay_faq_001", Table: document.ServiceGuides, Title: "애플페이 등록 안내",
		Content: "애플페이 등록 오류 시 앱을 다시 설치하세요."},
	{ID: "guide_general_001", Table: document.ServiceGuides, Title: "카드 이용 안내",
		Content: "카드 이용 관련 일반 안내입니다."},
	{ID: "guide_general_002", Table: document.ServiceGuides, Title: "고객 센터 이용",
		Content: "상담 가능 시간은 평일 9시부터 18시까지입니다."},
}

// mockKeyword returns every corpus document in scope, in corpus order.
type mockKeyword struct {
	mu    sync.Mutex
	calls int
	err   error
	delay time.Duration
}

func (m *mockKeyword) SearchKeyword(
	ctx context.Context, sc scope.Scope, _ string, _ []string, k int,
) ([]document.Hit, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	var hits []document.Hit
	for i, d := range corpus {
		if d.Table == sc.Table() && sc.Matches(d.ID) && len(hits) < k {
			hits = append(hits, document.Hit{Document: d, Score: float64(len(corpus) - i)})
		}
	}
	return hits, nil
}

func (m *mockKeyword) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockVector struct {
	mu     sync.Mutex
	called int
}

func (m *mockVector) SearchVector(_ context.Context, _ scope.Scope, _ []float32, _ int) ([]document.Hit, error) {
	m.mu.Lock()
	m.called++
	m.mu.Unlock()
	return nil, nil
}

type mockEmbedder struct {
	vec []float32
	err error
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec}, nil
}

type corpusReader struct{}

func (corpusReader) GetMany(_ context.Context, table document.Table, ids []string) (map[string]document.Document, error) {
	out := make(map[string]document.Document)
	for _, d := range corpus {
		for _, id := range ids {
			if d.Table == table && d.ID == id {
				out[id] = d
			}
		}
	}
	return out, nil
}

// mockChat ignores ctx on purpose so deadline handling cannot rely on it.
type mockChat struct {
	reply string
	delay time.Duration
}

func (m *mockChat) Chat(_ context.Context, _ domain.ChatRequest) (string, error) {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	return m.reply, nil
}

// guidesFirstEncoder scores every guide above every card product.
type guidesFirstEncoder struct{}

func (guidesFirstEncoder) Score(_ context.Context, _ string, docs []string) ([]float64, error) {
	out := make([]float64, len(docs))
	for i, d := range docs {
		if !strings.Contains(d, "군 장병") {
			out[i] = 1
		}
	}
	return out, nil
}

const chatReply = "불편을 드려 죄송합니다. 앱에서 바로 처리하실 수 있습니다. 더 도와드릴까요?"

type fixture struct {
	kw   *mockKeyword
	vec  *mockVector
	chat *mockChat
	c    Components
}

func newFixture() *fixture {
	v := vocab.Default()
	f := &fixture{kw: &mockKeyword{}, vec: &mockVector{}, chat: &mockChat{reply: chatReply}}
	preset, _ := search.LookupPreset("balanced")
	f.c = Components{
		Vocabulary: v,
		Extractor:  extract.New(v, extract.DefaultPhoneticThreshold),
		Gate:       gating.New(v, gating.DefaultHybridMinScore),
		Retriever:  search.New(f.kw, f.vec, preset, time.Second, 20),
		Pins:       pin.New(corpusReader{}, pin.DefaultRules(), 0, 0),
		Reranker:   rerank.New(nil, nil, rerank.Options{Enabled: false}),
		Generator:  answer.New(f.chat, answer.Options{}),
		Exact:      cache.NewExact(time.Minute, 100, nil, "test:"),
	}
	return f
}

func (f *fixture) service(opts Options) *Service {
	return New(f.c, opts)
}

func ids(views []DocumentView) []string {
	out := make([]string, len(views))
	for i, v := range views {
		out[i] = v.ID
	}
	return out
}

func containsID(views []DocumentView, id string) bool {
	for _, v := range views {
		if v.ID == id {
			return true
		}
	}
	return false
}

func hasCode(codes []domain.ErrorCode, c domain.ErrorCode) bool {
	for _, x := range codes {
		if x == c {
			return true
		}
	}
	return false
}
