package pgvector

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/pgvector/pgvector-go"

	domdoc "github.com/kailas-cloud/callrag/internal/domain/document"
	"github.com/kailas-cloud/callrag/internal/domain/scope"
)

func TestSearchVector(t *testing.T) {
	fp := &fakePool{rows: [][]any{
		{"card_narasarang", "나라사랑카드", "병역 의무자 전용", []byte(`{"card_name":"나라사랑카드"}`), 0.82},
		{"card_other", "다른 카드", "", []byte(nil), -0.1},
	}}
	repo := New(fp, "", 3)

	hits, err := repo.SearchVector(context.Background(), scope.CardProducts, []float32{1, 0, 0}, 7)
	if err != nil {
		t.Fatalf("SearchVector: %v", err)
	}

	q := fp.queries[0]
	if !strings.Contains(q.sql, `FROM "callrag_documents"`) || !strings.Contains(q.sql, "$3 = ANY(scopes)") {
		t.Errorf("sql = %s", q.sql)
	}
	if v, ok := q.args[0].(pgvector.Vector); !ok || !slices.Equal(v.Slice(), []float32{1, 0, 0}) {
		t.Errorf("vector arg = %#v", q.args[0])
	}
	if q.args[1] != "card_products" || q.args[2] != "card_products" || q.args[3] != 7 {
		t.Errorf("args = %v", q.args[1:])
	}

	if len(hits) != 2 {
		t.Fatalf("hits = %d, want 2", len(hits))
	}
	if hits[0].Metadata[domdoc.MetaCardName] != "나라사랑카드" || hits[0].Table != domdoc.CardProducts {
		t.Errorf("first hit = %+v", hits[0])
	}
	if hits[1].Score != 0 {
		t.Errorf("negative similarity should clamp to 0, got %v", hits[1].Score)
	}
}

func TestSearchVector_QueryError(t *testing.T) {
	boom := errors.New("connection reset")
	repo := New(&fakePool{queryErr: boom}, "docs", 3)
	if _, err := repo.SearchVector(context.Background(), scope.Terms, []float32{1}, 5); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestSearchVector_EmptyVector(t *testing.T) {
	fp := &fakePool{}
	hits, err := New(fp, "", 3).SearchVector(context.Background(), scope.Terms, nil, 5)
	if err != nil || hits != nil || len(fp.queries) != 0 {
		t.Fatalf("expected no-op, got %v %v", hits, err)
	}
}

func TestEnsureIndex(t *testing.T) {
	fp := &fakePool{}
	if err := New(fp, "docs", 1024).EnsureIndex(context.Background(), domdoc.ServiceGuides); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}
	if len(fp.execs) != 3 {
		t.Fatalf("execs = %d, want 3", len(fp.execs))
	}
	if !strings.Contains(fp.execs[1].sql, "vector(1024)") {
		t.Errorf("table ddl = %s", fp.execs[1].sql)
	}
	if !strings.Contains(fp.execs[2].sql, `"docs_embedding_idx"`) || !strings.Contains(fp.execs[2].sql, "hnsw") {
		t.Errorf("index ddl = %s", fp.execs[2].sql)
	}
}

func TestEnsureIndex_NeedsDim(t *testing.T) {
	if err := New(&fakePool{}, "", 0).EnsureIndex(context.Background(), domdoc.CardProducts); err == nil {
		t.Fatal("expected error")
	}
}

func TestIndex_QueuesUpserts(t *testing.T) {
	fp := &fakePool{}
	docs := []domdoc.Document{
		{ID: "card_narasarang", Table: domdoc.CardProducts, Embedding: []float32{1, 0}},
		{ID: "guide_general_001", Table: domdoc.ServiceGuides, Embedding: []float32{0, 1}},
	}
	if err := New(fp, "", 2).Index(context.Background(), docs); err != nil {
		t.Fatalf("Index: %v", err)
	}
	if len(fp.batches) != 1 || fp.batches[0].Len() != 2 {
		t.Fatalf("expected one batch of 2")
	}
	args := fp.batches[0].QueuedQueries[1].Arguments
	if !slices.Equal(args[5].([]string), []string{"guide_general", "guide_with_terms"}) {
		t.Errorf("scopes = %v", args[5])
	}
}

func TestIndex_RequiresEmbedding(t *testing.T) {
	err := New(&fakePool{}, "", 2).Index(context.Background(), []domdoc.Document{{ID: "x", Table: domdoc.CardProducts}})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestIndex_ExecError(t *testing.T) {
	fp := &fakePool{batchErr: errors.New("duplicate")}
	err := New(fp, "", 1).Index(context.Background(), []domdoc.Document{
		{ID: "x", Table: domdoc.CardProducts, Embedding: []float32{1}},
	})
	if err == nil || !strings.Contains(err.Error(), "upsert x") {
		t.Fatalf("expected upsert error, got %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	fp := &fakePool{}
	if err := New(fp, "", 2).HealthCheck(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fp.execs) != 1 || fp.execs[0].sql != "SELECT 1" {
		t.Errorf("execs = %+v", fp.execs)
	}

	fp.execErr = errors.New("connection refused")
	if err := New(fp, "", 2).HealthCheck(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
