package search

import (
	"context"

	"github.com/kailas-cloud/callrag/internal/domain/document"
	"github.com/kailas-cloud/callrag/internal/domain/scope"
)

// KeywordSearcher runs BM25-style text search restricted to one scope.
type KeywordSearcher interface {
	SearchKeyword(
		ctx context.Context, sc scope.Scope,
		query string, expansions []string, k int,
	) ([]document.Hit, error)
}

// VectorSearcher runs KNN search restricted to one scope.
type VectorSearcher interface {
	SearchVector(
		ctx context.Context, sc scope.Scope,
		vector []float32, k int,
	) ([]document.Hit, error)
}
