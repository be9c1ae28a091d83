package assist

import (
	"github.com/kailas-cloud/callrag/internal/domain"
	"github.com/kailas-cloud/callrag/internal/domain/document"
	"github.com/kailas-cloud/callrag/internal/domain/retrieval"
	domroute "github.com/kailas-cloud/callrag/internal/domain/route"
	"github.com/kailas-cloud/callrag/internal/domain/scope"
)

// Cache tiers reported in Response.CacheHit.
const (
	CacheNone     = "none"
	CacheExact    = "exact"
	CacheSemantic = "semantic"
)

// RetrievalFailedMessage is returned when no source could be searched.
const RetrievalFailedMessage = "죄송합니다. 지금은 관련 문서를 찾지 못했습니다. 잠시 후 다시 시도해 주세요."

const viewContentRunes = 500

// Request is one live agent query.
type Request struct {
	Query     string `json:"query"`
	RouteHint string `json:"route_hint,omitempty"`
	// AllowPins defaults to true when omitted.
	AllowPins     *bool  `json:"allow_pins,omitempty"`
	TopK          int    `json:"top_k,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// Response is the assembled pipeline output.
type Response struct {
	CorrelationID string             `json:"correlation_id"`
	Route         domroute.Name      `json:"route"`
	Message       string             `json:"message"`
	Documents     []DocumentView     `json:"documents"`
	ConsultDocs   []string           `json:"consult_docs"`
	DomainScore   int                `json:"domain_score"`
	CacheHit      string             `json:"cache_hit"`
	Errors        []domain.ErrorCode `json:"errors"`
	Mode          retrieval.Mode     `json:"mode,omitempty"`
}

// DocumentView is the client projection of a retrieved item.
type DocumentView struct {
	ID           string            `json:"id"`
	Table        document.Table    `json:"table"`
	Title        string            `json:"title"`
	Content      string            `json:"content"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Score        float64           `json:"score"`
	KeywordScore float64           `json:"keyword_score"`
	VectorScore  float64           `json:"vector_score"`
	RerankScore  *float64          `json:"rerank_score,omitempty"`
	Source       scope.Scope       `json:"source_tag"`
	Pinned       bool              `json:"pinned"`
}

func toViews(items []retrieval.Item) ([]DocumentView, []string) {
	views := make([]DocumentView, len(items))
	ids := make([]string, len(items))
	for i, it := range items {
		content := []rune(it.Content)
		if len(content) > viewContentRunes {
			content = content[:viewContentRunes]
		}
		views[i] = DocumentView{
			ID:           it.ID,
			Table:        it.Table,
			Title:        it.Title,
			Content:      string(content),
			Metadata:     it.Metadata,
			Score:        it.Score,
			KeywordScore: it.KeywordScore,
			VectorScore:  it.VectorScore,
			RerankScore:  it.RerankScore,
			Source:       it.Source,
			Pinned:       it.Pinned,
		}
		ids[i] = it.ID
	}
	return views, ids
}
