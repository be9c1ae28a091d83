package assist

import (
	"context"

	"github.com/kailas-cloud/callrag/internal/domain"
	"github.com/kailas-cloud/callrag/internal/domain/keyword"
	"github.com/kailas-cloud/callrag/internal/domain/retrieval"
	domroute "github.com/kailas-cloud/callrag/internal/domain/route"
	"github.com/kailas-cloud/callrag/internal/usecase/answer"
	"github.com/kailas-cloud/callrag/internal/usecase/cache"
	"github.com/kailas-cloud/callrag/internal/usecase/gating"
	"github.com/kailas-cloud/callrag/internal/usecase/pin"
	"github.com/kailas-cloud/callrag/internal/usecase/search"
)

// Extractor turns an utterance into keywords.
type Extractor interface {
	Extract(text string) (keyword.Keywords, error)
}

// Gate makes the search decision and picks sources.
type Gate interface {
	Decide(query string, kw keyword.Keywords) gating.Decision
	Policy(query string, kw keyword.Keywords, r domroute.Route) gating.Plan
}

// Embedder vectorizes the query.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Retriever runs hybrid retrieval over the planned sources.
type Retriever interface {
	Retrieve(ctx context.Context, q search.Query) (search.Result, error)
}

// Pinner merges policy pins into a result list.
type Pinner interface {
	Apply(ctx context.Context, items []retrieval.Item, in pin.Input) []retrieval.Item
}

// Reranker reorders candidates. diverse keeps a missing card/guide kind past the cutoff.
type Reranker interface {
	Rerank(ctx context.Context, query string, items []retrieval.Item, diverse bool) ([]retrieval.Item, error)
}

// Generator writes the agent script.
type Generator interface {
	Generate(ctx context.Context, in answer.Input) (answer.Result, error)
}

// ExactCache caches post-rerank results by request fingerprint.
type ExactCache interface {
	Enabled() bool
	Get(ctx context.Context, key cache.Key) ([]retrieval.Item, bool)
	Put(ctx context.Context, key cache.Key, items []retrieval.Item)
	Stats() cache.Stats
}

// SemanticCache caches results by query embedding similarity.
type SemanticCache interface {
	Lookup(embedding []float32) ([]retrieval.Item, float64, bool)
	Put(query string, embedding []float32, items []retrieval.Item)
	Stats() cache.Stats
}
