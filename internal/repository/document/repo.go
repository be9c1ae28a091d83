// Package document stores corpus documents as Redis hashes under an FT index per table.
package document

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/callrag/internal/db"
	domdoc "github.com/kailas-cloud/callrag/internal/domain/document"
)

const writeBatch = 100

// store is the consumer interface for documents (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Repo reads and writes corpus documents.
type Repo struct {
	store  store
	prefix string
	dim    int
	hnsw   HNSWConfig
}

// New creates a document repository. dim is the embedding dimension; 0 builds text-only indexes.
func New(s store, prefix string, dim int) *Repo {
	return &Repo{store: s, prefix: prefix, dim: dim, hnsw: HNSWConfig{M: 16, EFConstruct: 200}}
}

// WithHNSW configures HNSW index parameters.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	if cfg.M > 0 {
		r.hnsw.M = cfg.M
	}
	if cfg.EFConstruct > 0 {
		r.hnsw.EFConstruct = cfg.EFConstruct
	}
	return r
}

// EnsureIndex creates the table's FT index unless it already exists.
func (r *Repo) EnsureIndex(ctx context.Context, table domdoc.Table) error {
	def, err := buildIndex(r.prefix, table, r.dim, r.hnsw)
	if err != nil {
		return fmt.Errorf("build index %s: %w", table, err)
	}
	exists, err := r.store.IndexExists(ctx, def.Name)
	if err != nil {
		return fmt.Errorf("check index %s: %w", def.Name, err)
	}
	if exists {
		return nil
	}
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", def.Name, err)
	}
	return nil
}

// DropIndex removes the table's FT index. The hashes stay and are picked up again by the
// next EnsureIndex. A missing index is not an error.
func (r *Repo) DropIndex(ctx context.Context, table domdoc.Table) error {
	name := IndexName(r.prefix, table)
	if err := r.store.DropIndex(ctx, name); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index %s: %w", name, err)
	}
	return nil
}

// Index upserts documents in pipelined batches.
func (r *Repo) Index(ctx context.Context, docs []domdoc.Document) error {
	for start := 0; start < len(docs); start += writeBatch {
		end := min(start+writeBatch, len(docs))
		items := make([]db.HashSetItem, 0, end-start)
		for i := start; i < end; i++ {
			d := &docs[i]
			if err := d.Validate(r.dim); err != nil {
				return err
			}
			items = append(items, db.HashSetItem{
				Key:    Key(r.prefix, d.Table, d.ID),
				Fields: buildHashFields(d),
			})
		}
		if err := r.store.HSetMulti(ctx, items); err != nil {
			return fmt.Errorf("index documents [%d:%d]: %w", start, end, err)
		}
	}
	return nil
}

// GetMany fetches documents by ID. Missing IDs are absent from the result.
func (r *Repo) GetMany(ctx context.Context, table domdoc.Table, ids []string) (map[string]domdoc.Document, error) {
	if len(ids) == 0 {
		return map[string]domdoc.Document{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = Key(r.prefix, table, id)
	}

	rows, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("get documents %s: %w", table, err)
	}

	out := make(map[string]domdoc.Document, len(rows))
	for i, m := range rows {
		if len(m) == 0 {
			continue
		}
		doc := Decode(keys[i], m)
		doc.Embedding = nil
		if doc.Table == "" {
			doc.Table = table
		}
		out[ids[i]] = doc
	}
	return out, nil
}
