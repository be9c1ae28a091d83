// Package search runs keyword and vector searches against the Redis document indexes.
package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/callrag/internal/db"
	domdoc "github.com/kailas-cloud/callrag/internal/domain/document"
	"github.com/kailas-cloud/callrag/internal/domain/scope"
	docrepo "github.com/kailas-cloud/callrag/internal/repository/document"
)

var textFields = []string{docrepo.FieldTitle, docrepo.FieldContent}

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
}

// Repo implements usecase/search.KeywordSearcher and VectorSearcher.
type Repo struct {
	store  store
	prefix string
}

// New creates a search repository over indexes named with prefix.
func New(s store, prefix string) *Repo {
	return &Repo{store: s, prefix: prefix}
}

// SearchKeyword runs BM25 over title and content. Query words and expansions are OR-ed.
func (r *Repo) SearchKeyword(
	ctx context.Context, sc scope.Scope,
	query string, expansions []string, k int,
) ([]domdoc.Hit, error) {
	terms := append(strings.Fields(query), expansions...)
	if len(terms) == 0 {
		return nil, nil
	}

	sr, err := r.store.SearchText(ctx, &db.TextQuery{
		IndexName:    docrepo.IndexName(r.prefix, sc.Table()),
		Fields:       textFields,
		Terms:        terms,
		Filter:       scopeFilter(sc),
		TopK:         k,
		ReturnFields: docrepo.ReturnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("keyword search %s: %w", sc, err)
	}
	return toHits(sr, sc), nil
}

// SearchVector runs KNN restricted to the scope's documents.
func (r *Repo) SearchVector(
	ctx context.Context, sc scope.Scope,
	vector []float32, k int,
) ([]domdoc.Hit, error) {
	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    docrepo.IndexName(r.prefix, sc.Table()),
		VectorField:  docrepo.FieldVector,
		Filter:       scopeFilter(sc),
		Vector:       vector,
		K:            k,
		ReturnFields: docrepo.ReturnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("vector search %s: %w", sc, err)
	}
	return toHits(sr, sc), nil
}

func scopeFilter(sc scope.Scope) db.TagFilter {
	return db.TagFilter{Field: docrepo.FieldScopes, Values: []string{string(sc)}}
}

// toHits decodes entries, dropping any the scope predicate rejects.
func toHits(sr *db.SearchResult, sc scope.Scope) []domdoc.Hit {
	if sr == nil || len(sr.Entries) == 0 {
		return nil
	}
	hits := make([]domdoc.Hit, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		doc := docrepo.Decode(e.Key, e.Fields)
		if doc.Table == "" {
			doc.Table = sc.Table()
		}
		if !sc.Matches(doc.ID) {
			continue
		}
		hits = append(hits, domdoc.Hit{Document: doc, Score: e.Score})
	}
	return hits
}
