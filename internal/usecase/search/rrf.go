package search

import (
	"github.com/kailas-cloud/callrag/internal/domain/document"
	"github.com/kailas-cloud/callrag/internal/domain/retrieval"
	"github.com/kailas-cloud/callrag/internal/domain/scope"
)

// fuseRRF merges keyword and vector hits of one source via Reciprocal Rank Fusion:
// score(d) = kw_weight/(k + rank_kw(d)) + vec_weight/(k + rank_vec(d)), ranks starting at 1.
// Raw store scores are kept as KeywordScore/VectorScore for tie-breaking. When a document
// appears in both lists the keyword hit supplies the document body.
func fuseRRF(
	keyword, vector []document.Hit, p Preset, src scope.Scope, srcIndex int,
) []retrieval.Item {
	merged := make(map[string]*retrieval.Item, len(keyword)+len(vector))
	order := make([]string, 0, len(keyword)+len(vector))

	get := func(h document.Hit) *retrieval.Item {
		key := h.Key()
		if it, ok := merged[key]; ok {
			return it
		}
		doc := h.Document
		doc.Embedding = nil
		it := &retrieval.Item{Document: doc, Source: src, SourceIndex: srcIndex}
		merged[key] = it
		order = append(order, key)
		return it
	}

	for rank, h := range keyword {
		it := get(h)
		it.Score += p.KeywordWeight / float64(p.K+rank+1)
		it.KeywordScore = h.Score
	}
	for rank, h := range vector {
		it := get(h)
		it.Score += p.VectorWeight / float64(p.K+rank+1)
		it.VectorScore = h.Score
	}

	out := make([]retrieval.Item, 0, len(order))
	for _, key := range order {
		out = append(out, *merged[key])
	}
	retrieval.Sort(out)
	return out
}
