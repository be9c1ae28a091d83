// Package pgvector implements vector search and document upsert on PostgreSQL with pgvector.
package pgvector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	domdoc "github.com/kailas-cloud/callrag/internal/domain/document"
	"github.com/kailas-cloud/callrag/internal/domain/scope"
)

// DefaultTable holds both corpora, keyed by (doc_table, id).
const DefaultTable = "callrag_documents"

// pool is the subset of pgxpool.Pool the repository uses.
type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Config holds connection and schema parameters.
type Config struct {
	DSN   string
	Table string
	Dim   int
}

// Repo implements usecase/search.VectorSearcher on pgvector.
type Repo struct {
	pool  pool
	name  string
	table string // quoted identifier
	dim   int
	close func()
}

// Connect opens a connection pool.
func Connect(ctx context.Context, cfg Config) (*Repo, error) {
	if cfg.DSN == "" {
		return nil, errors.New("postgres dsn is required")
	}
	p, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	r := New(p, cfg.Table, cfg.Dim)
	r.close = p.Close
	return r, nil
}

// New wraps an existing pool.
func New(p pool, table string, dim int) *Repo {
	if table == "" {
		table = DefaultTable
	}
	return &Repo{pool: p, name: table, table: pgx.Identifier{table}.Sanitize(), dim: dim}
}

// Close releases the pool when the repository owns it.
func (r *Repo) Close() {
	if r.close != nil {
		r.close()
	}
}

// SearchVector returns the k nearest documents of the scope by cosine distance.
// Scores are cosine similarity.
func (r *Repo) SearchVector(
	ctx context.Context, sc scope.Scope,
	vector []float32, k int,
) ([]domdoc.Hit, error) {
	if len(vector) == 0 || k <= 0 {
		return nil, nil
	}
	table := sc.Table()
	sql := fmt.Sprintf(`
		SELECT id, title, content, metadata, 1 - (embedding <=> $1) AS score
		FROM %s
		WHERE doc_table = $2 AND $3 = ANY(scopes) AND embedding IS NOT NULL
		ORDER BY embedding <=> $1
		LIMIT $4`, r.table)

	rows, err := r.pool.Query(ctx, sql, pgvector.NewVector(vector), string(table), string(sc), k)
	if err != nil {
		return nil, fmt.Errorf("vector search %s: %w", sc, err)
	}
	defer rows.Close()

	var hits []domdoc.Hit
	for rows.Next() {
		var (
			doc   = domdoc.Document{Table: table}
			meta  []byte
			score float64
		)
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.Content, &meta, &score); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", sc, err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &doc.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata %s: %w", doc.ID, err)
			}
		}
		hits = append(hits, domdoc.Hit{Document: doc, Score: max(0, score)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vector search %s: %w", sc, err)
	}
	return hits, nil
}

// EnsureIndex creates the extension, table and HNSW index. The table argument is
// accepted for symmetry with the other indexers; both corpora share one table.
func (r *Repo) EnsureIndex(ctx context.Context, _ domdoc.Table) error {
	if r.dim <= 0 {
		return errors.New("pgvector needs a positive embedding dimension")
	}
	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			doc_table TEXT NOT NULL,
			id        TEXT NOT NULL,
			title     TEXT NOT NULL DEFAULT '',
			content   TEXT NOT NULL DEFAULT '',
			metadata  JSONB,
			scopes    TEXT[] NOT NULL,
			embedding vector(%d),
			PRIMARY KEY (doc_table, id)
		)`, r.table, r.dim),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (embedding vector_cosine_ops)`,
			pgx.Identifier{r.name + "_embedding_idx"}.Sanitize(), r.table),
	}
	for _, s := range stmts {
		if _, err := r.pool.Exec(ctx, s); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Index upserts documents in one batch.
func (r *Repo) Index(ctx context.Context, docs []domdoc.Document) error {
	if len(docs) == 0 {
		return nil
	}
	sql := fmt.Sprintf(`
		INSERT INTO %s (doc_table, id, title, content, metadata, scopes, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (doc_table, id) DO UPDATE SET
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			metadata = EXCLUDED.metadata,
			scopes = EXCLUDED.scopes,
			embedding = EXCLUDED.embedding`, r.table)

	batch := &pgx.Batch{}
	for i := range docs {
		d := &docs[i]
		if err := d.Validate(r.dim); err != nil {
			return err
		}
		if len(d.Embedding) == 0 {
			return fmt.Errorf("document %s: embedding is required", d.ID)
		}
		meta, err := json.Marshal(d.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata %s: %w", d.ID, err)
		}
		scopes := scope.ScopesFor(d.Table, d.ID)
		names := make([]string, len(scopes))
		for j, s := range scopes {
			names[j] = string(s)
		}
		batch.Queue(sql, string(d.Table), d.ID, d.Title, d.Content, string(meta), names, pgvector.NewVector(d.Embedding))
	}

	br := r.pool.SendBatch(ctx, batch)
	for i := range docs {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("upsert %s: %w", docs[i].ID, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("upsert batch: %w", err)
	}
	return nil
}

// HealthCheck runs a trivial query.
func (r *Repo) HealthCheck(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, "SELECT 1"); err != nil {
		return fmt.Errorf("postgres health check: %w", err)
	}
	return nil
}
