package document

import (
	"github.com/kailas-cloud/callrag/internal/db"
	domdoc "github.com/kailas-cloud/callrag/internal/domain/document"
)

// titleWeight boosts title matches over body matches in BM25.
const titleWeight = 2

// HNSWConfig HNSW index parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

func buildIndex(prefix string, table domdoc.Table, dim int, hnsw HNSWConfig) (*db.IndexDefinition, error) {
	b := db.NewIndex(IndexName(prefix, table)).
		Prefix(KeyPrefix(prefix, table)).
		Tag(FieldID).
		TagList(FieldScopes, ",").
		Tag(FieldCardName).
		Tag(FieldCategory).
		Text(FieldTitle, titleWeight).
		Text(FieldContent, 0)
	if dim > 0 {
		b = b.VectorHNSW(FieldVector, dim, db.DistanceCosine, hnsw.M, hnsw.EFConstruct)
	}
	return b.Build()
}
