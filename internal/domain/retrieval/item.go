// Package retrieval holds ranked retrieval results and ordering rules shared by the pipeline stages.
package retrieval

import (
	"sort"

	"github.com/kailas-cloud/callrag/internal/domain/document"
	"github.com/kailas-cloud/callrag/internal/domain/scope"
)

// Mode selects which searches run per source.
type Mode string

const (
	KeywordOnly Mode = "keyword_only"
	Hybrid      Mode = "hybrid"
)

// Item is a ranked document with its score breakdown.
type Item struct {
	document.Document
	Score        float64     `json:"score"`
	KeywordScore float64     `json:"keyword_score"`
	VectorScore  float64     `json:"vector_score"`
	RerankScore  *float64    `json:"rerank_score,omitempty"`
	Source       scope.Scope `json:"source_tag"`
	SourceIndex  int         `json:"source_index"`
	Pinned       bool        `json:"pinned"`
}

// Less orders by fused score, then keyword score, vector score, source order and id.
func Less(a, b *Item) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.KeywordScore != b.KeywordScore {
		return a.KeywordScore > b.KeywordScore
	}
	if a.VectorScore != b.VectorScore {
		return a.VectorScore > b.VectorScore
	}
	if a.SourceIndex != b.SourceIndex {
		return a.SourceIndex < b.SourceIndex
	}
	if a.ID != b.ID {
		return a.ID < b.ID
	}
	return a.Table < b.Table
}

// Sort orders items in place using Less.
func Sort(items []Item) {
	sort.SliceStable(items, func(i, j int) bool { return Less(&items[i], &items[j]) })
}

// Dedupe drops repeated (table, id) pairs, keeping the first occurrence.
func Dedupe(items []Item) []Item {
	seen := make(map[string]bool, len(items))
	out := make([]Item, 0, len(items))
	for _, it := range items {
		k := it.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, it)
	}
	return out
}

// Diversify reorders items so that the first k hold at least one card product and one guide
// whenever both kinds exist. The best candidate of the missing kind takes slot k-1 and the
// displaced item moves right behind it. The input slice is not modified.
func Diversify(items []Item, k int) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	if k < 2 || len(out) <= k {
		return out
	}

	var hasCard, hasGuide bool
	for i := 0; i < k; i++ {
		if out[i].IsCard() {
			hasCard = true
		} else {
			hasGuide = true
		}
	}
	if hasCard && hasGuide {
		return out
	}

	wantCard := !hasCard
	for i := k; i < len(out); i++ {
		if out[i].IsCard() != wantCard {
			continue
		}
		candidate := out[i]
		copy(out[k:i+1], out[k-1:i])
		out[k-1] = candidate
		break
	}
	return out
}

// Truncate keeps the first k items plus any pinned item ranked below the cutoff.
func Truncate(items []Item, k int) []Item {
	if k <= 0 || len(items) <= k {
		out := make([]Item, len(items))
		copy(out, items)
		return out
	}
	out := make([]Item, 0, k)
	out = append(out, items[:k]...)
	for _, it := range items[k:] {
		if it.Pinned {
			out = append(out, it)
		}
	}
	return out
}

// TruncateKinds is Truncate that also keeps the best-ranked item of a kind (card product or
// guide) missing from the first k, so a later Diversify can still pull it forward.
func TruncateKinds(items []Item, k int) []Item {
	out := Truncate(items, k)
	if k <= 0 || len(items) <= k {
		return out
	}
	var hasCard, hasGuide bool
	for i := 0; i < k; i++ {
		if items[i].IsCard() {
			hasCard = true
		} else {
			hasGuide = true
		}
	}
	if hasCard && hasGuide {
		return out
	}
	for _, it := range items[k:] {
		if it.IsCard() != hasGuide {
			continue
		}
		if !it.Pinned {
			out = append(out, it)
		}
		break
	}
	return out
}

// Clone returns a deep copy suitable for handing out from a cache.
func Clone(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	for i, it := range items {
		if it.RerankScore != nil {
			v := *it.RerankScore
			it.RerankScore = &v
		}
		if it.Metadata != nil {
			m := make(map[string]string, len(it.Metadata))
			for k, v := range it.Metadata {
				m[k] = v
			}
			it.Metadata = m
		}
		it.Embedding = nil
		out[i] = it
	}
	return out
}
