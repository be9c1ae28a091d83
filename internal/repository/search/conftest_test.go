package search

import (
	"context"

	"github.com/kailas-cloud/callrag/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	searchKNNFn  func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	searchTextFn func(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if m.searchTextFn != nil {
		return m.searchTextFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func entry(table, id string, score float64) db.SearchEntry {
	return db.SearchEntry{
		Key:   "callrag:doc:" + table + ":" + id,
		Score: score,
		Fields: map[string]string{
			"doc_id":  id,
			"table":   table,
			"title":   id + " title",
			"content": id + " content",
		},
	}
}
