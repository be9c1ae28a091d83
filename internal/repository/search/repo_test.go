package search

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/kailas-cloud/callrag/internal/db"
	domdoc "github.com/kailas-cloud/callrag/internal/domain/document"
	"github.com/kailas-cloud/callrag/internal/domain/scope"
)

func TestSearchKeyword_BuildsQuery(t *testing.T) {
	var got *db.TextQuery
	ms := &mockStore{searchTextFn: func(_ context.Context, q *db.TextQuery) (*db.SearchResult, error) {
		got = q
		return &db.SearchResult{Total: 1, Entries: []db.SearchEntry{
			entry("service_guide_documents", "card_fees_rates_merged", 4.2),
		}}, nil
	}}
	repo := New(ms, "callrag:")

	hits, err := repo.SearchKeyword(context.Background(), scope.GuideMerged, "리볼빙 이자", []string{"결제 이월"}, 30)
	if err != nil {
		t.Fatalf("SearchKeyword: %v", err)
	}
	if got.IndexName != "callrag:service_guide_documents:idx" {
		t.Errorf("index = %q", got.IndexName)
	}
	if !slices.Equal(got.Terms, []string{"리볼빙", "이자", "결제 이월"}) {
		t.Errorf("terms = %v", got.Terms)
	}
	if got.Filter.Field != "scopes" || got.Filter.Values[0] != "guide_merged" {
		t.Errorf("filter = %+v", got.Filter)
	}
	if got.TopK != 30 {
		t.Errorf("topK = %d", got.TopK)
	}
	if len(hits) != 1 || hits[0].ID != "card_fees_rates_merged" || hits[0].Score != 4.2 {
		t.Errorf("hits = %+v", hits)
	}
}

func TestSearchKeyword_EmptyQuery(t *testing.T) {
	ms := &mockStore{searchTextFn: func(context.Context, *db.TextQuery) (*db.SearchResult, error) {
		t.Fatal("store should not be called")
		return nil, nil
	}}
	hits, err := New(ms, "callrag:").SearchKeyword(context.Background(), scope.Terms, "  ", nil, 10)
	if err != nil || hits != nil {
		t.Fatalf("got %v, %v", hits, err)
	}
}

func TestSearchVector_CardTable(t *testing.T) {
	var got *db.KNNQuery
	ms := &mockStore{searchKNNFn: func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		got = q
		return &db.SearchResult{Total: 1, Entries: []db.SearchEntry{
			entry("card_products", "card_narasarang", 0.83),
		}}, nil
	}}
	repo := New(ms, "callrag:")

	hits, err := repo.SearchVector(context.Background(), scope.CardProducts, []float32{0.1, 0.2}, 5)
	if err != nil {
		t.Fatalf("SearchVector: %v", err)
	}
	if got.IndexName != "callrag:card_products:idx" || got.VectorField != "vector" || got.K != 5 {
		t.Errorf("query = %+v", got)
	}
	if len(hits) != 1 || hits[0].Table != domdoc.CardProducts {
		t.Errorf("hits = %+v", hits)
	}
}

func TestSearch_DropsOutOfScope(t *testing.T) {
	ms := &mockStore{searchKNNFn: func(context.Context, *db.KNNQuery) (*db.SearchResult, error) {
		return &db.SearchResult{Total: 2, Entries: []db.SearchEntry{
			entry("service_guide_documents", "narasarang_faq_006", 0.9),
			entry("service_guide_documents", "hyundai_applepay_faq_001", 0.8),
		}}, nil
	}}
	hits, err := New(ms, "callrag:").SearchVector(context.Background(), scope.GuideGeneral, []float32{1}, 5)
	if err != nil {
		t.Fatalf("SearchVector: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "narasarang_faq_006" {
		t.Errorf("hits = %+v", hits)
	}
}

func TestSearch_WrapsStoreError(t *testing.T) {
	boom := errors.New("boom")
	ms := &mockStore{searchTextFn: func(context.Context, *db.TextQuery) (*db.SearchResult, error) {
		return nil, boom
	}}
	_, err := New(ms, "callrag:").SearchKeyword(context.Background(), scope.Terms, "약관", nil, 5)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}
