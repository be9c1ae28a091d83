package retrieval

import (
	"testing"

	"github.com/kailas-cloud/callrag/internal/domain/document"
)

func guide(id string, score float64) Item {
	return Item{Document: document.Document{ID: id, Table: document.ServiceGuides}, Score: score}
}

func card(id string, score float64) Item {
	return Item{Document: document.Document{ID: id, Table: document.CardProducts}, Score: score}
}

func ids(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestSort_TieBreaks(t *testing.T) {
	items := []Item{
		{Document: document.Document{ID: "b"}, Score: 1, KeywordScore: 1, VectorScore: 1, SourceIndex: 0},
		{Document: document.Document{ID: "a"}, Score: 1, KeywordScore: 1, VectorScore: 1, SourceIndex: 0},
		{Document: document.Document{ID: "c"}, Score: 1, KeywordScore: 1, VectorScore: 1, SourceIndex: -1},
		{Document: document.Document{ID: "d"}, Score: 1, KeywordScore: 1, VectorScore: 2, SourceIndex: 3},
		{Document: document.Document{ID: "e"}, Score: 1, KeywordScore: 2, SourceIndex: 5},
		{Document: document.Document{ID: "f"}, Score: 2, SourceIndex: 9},
	}
	Sort(items)

	want := []string{"f", "e", "d", "c", "a", "b"}
	got := ids(items)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestDiversify_PullsMissingCard(t *testing.T) {
	items := []Item{guide("g1", 5), guide("g2", 4), guide("g3", 3), card("c1", 2), guide("g4", 1)}
	out := Diversify(items, 3)

	got := ids(out)
	want := []string{"g1", "g2", "c1", "g3", "g4"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
	if items[2].ID != "g3" {
		t.Error("input slice must not be modified")
	}
}

func TestDiversify_PullsMissingGuide(t *testing.T) {
	items := []Item{card("c1", 5), card("c2", 4), guide("g1", 1)}
	out := Diversify(items, 2)
	if out[1].ID != "g1" {
		t.Fatalf("expected guide in top-2, got %v", ids(out))
	}
}

func TestDiversify_NoOpWhenSingleKindOrSmallK(t *testing.T) {
	items := []Item{guide("g1", 3), guide("g2", 2), guide("g3", 1)}
	out := Diversify(items, 2)
	if ids(out)[1] != "g2" {
		t.Errorf("unexpected reorder: %v", ids(out))
	}

	mixed := []Item{guide("g1", 3), card("c1", 2)}
	if ids(Diversify(mixed, 1))[0] != "g1" {
		t.Error("k=1 must not reorder")
	}
}

func TestTruncate_KeepsPinnedBelowCutoff(t *testing.T) {
	items := []Item{guide("g1", 5), guide("g2", 4), guide("g3", 3), guide("p1", 0.001)}
	items[3].Pinned = true

	out := Truncate(items, 2)
	got := ids(out)
	if len(got) != 3 || got[0] != "g1" || got[1] != "g2" || got[2] != "p1" {
		t.Fatalf("Truncate = %v", got)
	}
}

func TestDedupe_ByTableAndID(t *testing.T) {
	items := []Item{guide("x", 2), card("x", 1), guide("x", 0.5)}
	out := Dedupe(items)
	if len(out) != 2 {
		t.Fatalf("expected 2 items, got %d", len(out))
	}
}

func TestClone_DeepCopiesPointers(t *testing.T) {
	score := 0.7
	items := []Item{{Document: document.Document{ID: "a", Metadata: map[string]string{"k": "v"}}, RerankScore: &score}}
	out := Clone(items)
	*out[0].RerankScore = 0.1
	out[0].Metadata["k"] = "changed"
	if *items[0].RerankScore != 0.7 || items[0].Metadata["k"] != "v" {
		t.Error("Clone must not share pointers or maps")
	}
}

func TestTruncateKinds_KeepsMissingKind(t *testing.T) {
	items := []Item{guide("g1", 5), guide("g2", 4), guide("g3", 3), card("c1", 2), card("c2", 1)}
	if got := ids(TruncateKinds(items, 2)); len(got) != 3 || got[2] != "c1" {
		t.Fatalf("TruncateKinds = %v, want [g1 g2 c1]", got)
	}

	mixed := []Item{guide("g1", 5), card("c1", 4), guide("g2", 3)}
	if got := ids(TruncateKinds(mixed, 2)); len(got) != 2 {
		t.Errorf("mixed top-k must not grow: %v", got)
	}

	pinned := []Item{guide("g1", 5), guide("g2", 4), card("c1", 1)}
	pinned[2].Pinned = true
	if got := ids(TruncateKinds(pinned, 1)); len(got) != 2 || got[1] != "c1" {
		t.Errorf("pinned card must appear once: %v", got)
	}
}
