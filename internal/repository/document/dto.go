package document

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"strings"

	domdoc "github.com/kailas-cloud/callrag/internal/domain/document"
	"github.com/kailas-cloud/callrag/internal/domain/scope"
)

// Hash field names of a stored document.
const (
	FieldID       = "doc_id"
	FieldTable    = "table"
	FieldTitle    = "title"
	FieldContent  = "content"
	FieldMetadata = "metadata"
	FieldCardName = "card_name"
	FieldCategory = "category"
	FieldScopes   = "scopes"
	FieldVector   = "vector"
)

// ReturnFields are read back by searches. The vector is never returned.
var ReturnFields = []string{FieldID, FieldTable, FieldTitle, FieldContent, FieldMetadata}

// Key returns the hash key of a document.
func Key(prefix string, table domdoc.Table, id string) string {
	return KeyPrefix(prefix, table) + id
}

// KeyPrefix returns the key prefix shared by all documents of a table.
func KeyPrefix(prefix string, table domdoc.Table) string {
	return prefix + "doc:" + string(table) + ":"
}

// IndexName returns the FT index covering a table.
func IndexName(prefix string, table domdoc.Table) string {
	return prefix + string(table) + ":idx"
}

// buildHashFields flattens a document for HSET. Scope tags are derived from the ID.
func buildHashFields(doc *domdoc.Document) map[string]string {
	m := map[string]string{
		FieldID:      doc.ID,
		FieldTable:   string(doc.Table),
		FieldTitle:   doc.Title,
		FieldContent: doc.Content,
		FieldScopes:  scope.Join(scope.ScopesFor(doc.Table, doc.ID)),
	}
	if len(doc.Metadata) > 0 {
		if raw, err := json.Marshal(doc.Metadata); err == nil {
			m[FieldMetadata] = string(raw)
		}
		if v := doc.Metadata[domdoc.MetaCardName]; v != "" {
			m[FieldCardName] = v
		}
		if v := doc.Metadata[domdoc.MetaCategory]; v != "" {
			m[FieldCategory] = v
		}
	}
	if len(doc.Embedding) > 0 {
		m[FieldVector] = vectorToBytes(doc.Embedding)
	}
	return m
}

// Decode rebuilds a document from hash or search fields.
// The table falls back to the key prefix when the table field was not returned.
func Decode(key string, m map[string]string) domdoc.Document {
	doc := domdoc.Document{
		ID:      m[FieldID],
		Table:   domdoc.Table(m[FieldTable]),
		Title:   m[FieldTitle],
		Content: m[FieldContent],
	}
	if doc.ID == "" {
		if i := strings.LastIndex(key, ":"); i >= 0 {
			doc.ID = key[i+1:]
		}
	}
	if raw := m[FieldMetadata]; raw != "" {
		var meta map[string]string
		if err := json.Unmarshal([]byte(raw), &meta); err == nil {
			doc.Metadata = meta
		}
	}
	if v, ok := m[FieldVector]; ok {
		doc.Embedding = bytesToVector(v)
	}
	return doc
}

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
