package ingest

import (
	"encoding/json"
	"fmt"
	"strconv"

	domdoc "github.com/kailas-cloud/callrag/internal/domain/document"
)

// Target is a named Indexer.
type Target struct {
	Name    string
	Indexer Indexer
}

// Failure is a document that was skipped.
type Failure struct {
	Line int
	ID   string
	Err  error
}

// Report summarizes a load.
type Report struct {
	Read     int
	Indexed  int
	Embedded int
	Tokens   int
	Failures []Failure
}

// record is one JSONL line. Metadata values may be any JSON scalar.
type record struct {
	ID        string         `json:"id"`
	Table     string         `json:"table"`
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata"`
	Embedding []float32      `json:"embedding"`
}

func (r *record) document(table domdoc.Table) domdoc.Document {
	t := table
	if r.Table != "" {
		t = domdoc.Table(r.Table)
	}
	var meta map[string]string
	if len(r.Metadata) > 0 {
		meta = make(map[string]string, len(r.Metadata)+1)
		for k, v := range r.Metadata {
			meta[k] = metaString(v)
		}
	}
	if meta == nil {
		meta = make(map[string]string, 1)
	}
	meta[domdoc.MetaSourceTable] = string(t)

	return domdoc.Document{
		ID:        r.ID,
		Table:     t,
		Title:     r.Title,
		Content:   r.Content,
		Metadata:  meta,
		Embedding: r.Embedding,
	}
}

func metaString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

// embeddingText is what gets vectorized for a document.
func embeddingText(d *domdoc.Document) string {
	if d.Title == "" {
		return d.Content
	}
	return d.Title + "\n" + d.Content
}
