package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/callrag/internal/domain"
	domdoc "github.com/kailas-cloud/callrag/internal/domain/document"
)

const guidesJSONL = `{"id":"card_fees_rates_merged","title":"수수료 안내","content":"연회비는 1만원입니다.","metadata":{"category":"fees","order":3}}
{"id":"narasarang_faq_006","title":"나라사랑카드 재발급","content":"재발급은 영업점에서 가능합니다."}

{"id":"sinhan_terms_credit_001","title":"약관","content":"제1조","embedding":[0.5,0.5,0.5]}
`

func TestLoad_EmbedsMissingAndIndexesEverywhere(t *testing.T) {
	redis := &mockIndexer{}
	es := &mockIndexer{}
	emb := &mockEmbedder{dim: 3}
	progress := &countingProgress{}

	svc := New(emb, 3, Target{Name: "redis", Indexer: redis}, Target{Name: "elasticsearch", Indexer: es})
	rep, err := svc.Load(context.Background(), strings.NewReader(guidesJSONL), domdoc.ServiceGuides, progress)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rep.Read != 3 || rep.Indexed != 3 || rep.Embedded != 2 || rep.Tokens != 6 {
		t.Errorf("report = %+v", rep)
	}
	if progress.n != 3 {
		t.Errorf("progress = %d, want 3", progress.n)
	}
	if len(emb.calls) != 1 || len(emb.calls[0]) != 2 {
		t.Fatalf("expected one embed call with 2 texts, got %v", emb.calls)
	}
	if emb.calls[0][0] != "수수료 안내\n연회비는 1만원입니다." {
		t.Errorf("embedding text = %q", emb.calls[0][0])
	}

	for name, idx := range map[string]*mockIndexer{"redis": redis, "es": es} {
		docs := idx.docs()
		if len(docs) != 3 {
			t.Fatalf("%s: expected 3 docs, got %d", name, len(docs))
		}
		if len(idx.ensured) != 1 || idx.ensured[0] != domdoc.ServiceGuides {
			t.Errorf("%s: ensured = %v", name, idx.ensured)
		}
		for _, d := range docs {
			if len(d.Embedding) != 3 {
				t.Errorf("%s: %s has embedding %v", name, d.ID, d.Embedding)
			}
			if d.Table != domdoc.ServiceGuides {
				t.Errorf("%s: %s table = %q", name, d.ID, d.Table)
			}
		}
		if docs[0].Metadata["order"] != "3" || docs[0].Metadata[domdoc.MetaSourceTable] != "service_guide_documents" {
			t.Errorf("%s: metadata = %v", name, docs[0].Metadata)
		}
		if docs[2].Embedding[0] != 0.5 {
			t.Errorf("%s: precomputed embedding overwritten", name)
		}
	}
}

func TestLoad_SkipsInvalidLines(t *testing.T) {
	input := `not json
{"title":"no id"}
{"id":"card_001","title":"카드","content":"혜택"}
{"id":"bad_dim","embedding":[1,2]}
`
	idx := &mockIndexer{}
	svc := New(&mockEmbedder{dim: 3}, 3, Target{Name: "redis", Indexer: idx})

	rep, err := svc.Load(context.Background(), strings.NewReader(input), domdoc.CardProducts, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Read != 4 || rep.Indexed != 1 {
		t.Errorf("report = %+v", rep)
	}
	if len(rep.Failures) != 3 {
		t.Fatalf("expected 3 failures, got %+v", rep.Failures)
	}
	if rep.Failures[0].Line != 1 || rep.Failures[2].ID != "bad_dim" {
		t.Errorf("failures = %+v", rep.Failures)
	}
}

func TestLoad_Batches(t *testing.T) {
	var b strings.Builder
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		b.WriteString(`{"id":"` + id + `","content":"x"}` + "\n")
	}
	idx := &mockIndexer{}
	emb := &mockEmbedder{dim: 2}
	svc := New(emb, 2, Target{Name: "redis", Indexer: idx}).WithBatchSize(2)

	rep, err := svc.Load(context.Background(), strings.NewReader(b.String()), domdoc.CardProducts, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Indexed != 5 || len(idx.batches) != 3 || len(emb.calls) != 3 {
		t.Errorf("indexed=%d batches=%d embed calls=%d", rep.Indexed, len(idx.batches), len(emb.calls))
	}
}

func TestLoad_EmbeddingFailureAborts(t *testing.T) {
	idx := &mockIndexer{}
	svc := New(&mockEmbedder{err: domain.ErrRateLimited}, 3, Target{Name: "redis", Indexer: idx})

	_, err := svc.Load(context.Background(), strings.NewReader(guidesJSONL), domdoc.ServiceGuides, nil)
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	if len(idx.batches) != 0 {
		t.Error("nothing should be indexed after an embedding failure")
	}
}

func TestLoad_NoEmbedderRequiresVectors(t *testing.T) {
	svc := New(nil, 3, Target{Name: "redis", Indexer: &mockIndexer{}})

	_, err := svc.Load(context.Background(), strings.NewReader(guidesJSONL), domdoc.ServiceGuides, nil)
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestLoad_IndexerFailureNamesTarget(t *testing.T) {
	ok := &mockIndexer{}
	bad := &mockIndexer{indexErr: errors.New("bulk rejected")}
	svc := New(&mockEmbedder{dim: 3}, 3,
		Target{Name: "redis", Indexer: ok}, Target{Name: "elasticsearch", Indexer: bad})

	_, err := svc.Load(context.Background(), strings.NewReader(guidesJSONL), domdoc.ServiceGuides, nil)
	if err == nil || !strings.Contains(err.Error(), "elasticsearch") {
		t.Fatalf("expected error naming elasticsearch, got %v", err)
	}
}

func TestEnsure_StopsOnError(t *testing.T) {
	idx := &mockIndexer{ensureFn: func(table domdoc.Table) error {
		if table == domdoc.CardProducts {
			return errors.New("boom")
		}
		return nil
	}}
	svc := New(nil, 0, Target{Name: "redis", Indexer: idx})

	err := svc.Ensure(context.Background(), domdoc.ServiceGuides, domdoc.CardProducts)
	if err == nil || !strings.Contains(err.Error(), "card_products") {
		t.Fatalf("expected error for card_products, got %v", err)
	}
	if len(idx.ensured) != 2 {
		t.Errorf("ensured = %v", idx.ensured)
	}
}

func TestRecreate_DropsThenEnsures(t *testing.T) {
	var events []string
	redis := &droppingIndexer{events: &events}
	es := &mockIndexer{}
	svc := New(nil, 0, Target{Name: "redis", Indexer: redis}, Target{Name: "elasticsearch", Indexer: es})

	if err := svc.Recreate(context.Background(), domdoc.CardProducts, domdoc.ServiceGuides); err != nil {
		t.Fatalf("Recreate: %v", err)
	}
	want := []string{"drop card_products", "drop service_guide_documents", "ensure card_products", "ensure service_guide_documents"}
	if strings.Join(events, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", events, want)
	}
	if len(es.ensured) != 2 {
		t.Errorf("non-dropping target ensured = %v", es.ensured)
	}
}

func TestRecreate_DropFailureSkipsEnsure(t *testing.T) {
	var events []string
	redis := &droppingIndexer{events: &events, dropErr: errors.New("boom")}
	svc := New(nil, 0, Target{Name: "redis", Indexer: redis})

	err := svc.Recreate(context.Background(), domdoc.CardProducts)
	if err == nil || !strings.Contains(err.Error(), "drop redis index") {
		t.Fatalf("expected drop error, got %v", err)
	}
	if len(redis.ensured) != 0 {
		t.Errorf("ensured after failed drop: %v", redis.ensured)
	}
}
