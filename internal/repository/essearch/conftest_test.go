package essearch

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// fakeES serves handler behind the product header the v8 client requires.
func fakeES(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *Repo {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	repo, err := New(Config{Addresses: []string{srv.URL}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return repo
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func hit(id, table string, score float64) map[string]any {
	return map[string]any{
		"_id":    id,
		"_score": score,
		"_source": map[string]any{
			"doc_id":  id,
			"table":   table,
			"title":   id + " title",
			"content": id + " content",
		},
	}
}
