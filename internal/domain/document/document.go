package document

import "fmt"

// Table names one of the two read-only corpora.
type Table string

const (
	// CardProducts is the card catalog.
	CardProducts Table = "card_products"
	// ServiceGuides holds procedural guides and terms.
	ServiceGuides Table = "service_guide_documents"
)

// Valid reports whether t is a known corpus.
func (t Table) Valid() bool {
	return t == CardProducts || t == ServiceGuides
}

// ParseTable validates a table name.
func ParseTable(s string) (Table, error) {
	t := Table(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown table %q", s)
	}
	return t, nil
}

// Well-known metadata keys.
const (
	MetaSourceTable = "source_table"
	MetaCardName    = "card_name"
	MetaCategory    = "category"
)

// Document is a single corpus entry. (Table, ID) is unique.
type Document struct {
	ID        string            `json:"id"`
	Table     Table             `json:"table"`
	Title     string            `json:"title"`
	Content   string            `json:"content"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Embedding []float32         `json:"embedding,omitempty"`
}

// Key returns the corpus-wide identity of the document.
func (d Document) Key() string {
	return string(d.Table) + "/" + d.ID
}

// IsCard reports whether the document comes from the card catalog.
func (d Document) IsCard() bool {
	return d.Table == CardProducts
}

// Validate checks the invariants required for indexing.
func (d Document) Validate(dim int) error {
	if d.ID == "" {
		return fmt.Errorf("document id is required")
	}
	if !d.Table.Valid() {
		return fmt.Errorf("document %s: unknown table %q", d.ID, d.Table)
	}
	if dim > 0 && len(d.Embedding) > 0 && len(d.Embedding) != dim {
		return fmt.Errorf("document %s: embedding dimension %d, want %d", d.ID, len(d.Embedding), dim)
	}
	return nil
}

// Hit is a document returned by a store together with the store's relevance score.
type Hit struct {
	Document
	Score float64
}
