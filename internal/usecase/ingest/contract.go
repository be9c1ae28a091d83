package ingest

import (
	"context"

	"github.com/kailas-cloud/callrag/internal/domain"
	domdoc "github.com/kailas-cloud/callrag/internal/domain/document"
)

// Indexer writes documents into one retrieval store.
// Implemented by the Redis document repo, Elasticsearch and pgvector.
type Indexer interface {
	EnsureIndex(ctx context.Context, table domdoc.Table) error
	Index(ctx context.Context, docs []domdoc.Document) error
}

// IndexDropper is implemented by indexers whose index can be rebuilt over the stored
// documents (the Redis document repo).
type IndexDropper interface {
	DropIndex(ctx context.Context, table domdoc.Table) error
}

// Embedder vectorizes document text in batches.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}

// Progress receives the number of processed documents. *progressbar.ProgressBar satisfies it.
type Progress interface {
	Add(n int) error
}
