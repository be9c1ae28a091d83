// Package ingest loads JSONL corpora into the retrieval stores.
package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/callrag/internal/domain"
	domdoc "github.com/kailas-cloud/callrag/internal/domain/document"
	"github.com/kailas-cloud/callrag/internal/logger"
)

// DefaultBatchSize is the number of documents embedded and written together.
const DefaultBatchSize = 64

const maxLineBytes = 4 << 20

// Service embeds and indexes documents into every configured store.
type Service struct {
	embed     Embedder
	targets   []Target
	dim       int
	batchSize int
}

// New creates an ingest service. embed may be nil when every record carries its own vector.
func New(embed Embedder, dim int, targets ...Target) *Service {
	return &Service{embed: embed, targets: targets, dim: dim, batchSize: DefaultBatchSize}
}

// WithBatchSize configures the batch size.
func (s *Service) WithBatchSize(size int) *Service {
	if size > 0 {
		s.batchSize = size
	}
	return s
}

// Ensure creates the indexes of every target for the given tables.
func (s *Service) Ensure(ctx context.Context, tables ...domdoc.Table) error {
	for _, t := range s.targets {
		for _, table := range tables {
			if err := t.Indexer.EnsureIndex(ctx, table); err != nil {
				return fmt.Errorf("ensure %s index for %s: %w", t.Name, table, err)
			}
		}
	}
	return nil
}

// Recreate drops the indexes of every target that supports it, then ensures them again so
// they are rebuilt with the current schema. Other targets are only ensured.
func (s *Service) Recreate(ctx context.Context, tables ...domdoc.Table) error {
	log := logger.FromContext(ctx)
	for _, t := range s.targets {
		d, ok := t.Indexer.(IndexDropper)
		if !ok {
			log.Warn("Target cannot drop indexes, ensuring only", zap.String("target", t.Name))
			continue
		}
		for _, table := range tables {
			if err := d.DropIndex(ctx, table); err != nil {
				return fmt.Errorf("drop %s index for %s: %w", t.Name, table, err)
			}
			log.Info("Index dropped", zap.String("target", t.Name), zap.String("table", string(table)))
		}
	}
	return s.Ensure(ctx, tables...)
}

// Load reads JSONL documents from r and indexes them into table. Records may override
// the table. Invalid lines are reported in Report.Failures and skipped; store and
// embedding failures abort the load.
func (s *Service) Load(ctx context.Context, r io.Reader, table domdoc.Table, progress Progress) (Report, error) {
	var rep Report

	if err := s.Ensure(ctx, table); err != nil {
		return rep, err
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	batch := make([]domdoc.Document, 0, s.batchSize)
	line := 0
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		rep.Read++

		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			rep.Failures = append(rep.Failures, Failure{Line: line, Err: fmt.Errorf("decode: %w", err)})
			continue
		}
		doc := rec.document(table)
		if err := doc.Validate(s.dim); err != nil {
			rep.Failures = append(rep.Failures, Failure{Line: line, ID: doc.ID, Err: err})
			continue
		}

		batch = append(batch, doc)
		if len(batch) < s.batchSize {
			continue
		}
		if err := s.flush(ctx, batch, &rep, progress); err != nil {
			return rep, err
		}
		batch = batch[:0]
	}
	if err := sc.Err(); err != nil {
		return rep, fmt.Errorf("read line %d: %w", line+1, err)
	}
	if len(batch) > 0 {
		if err := s.flush(ctx, batch, &rep, progress); err != nil {
			return rep, err
		}
	}

	logger.FromContext(ctx).Info("Corpus loaded",
		zap.String("table", string(table)),
		zap.Int("read", rep.Read),
		zap.Int("indexed", rep.Indexed),
		zap.Int("embedded", rep.Embedded),
		zap.Int("failed", len(rep.Failures)),
	)
	return rep, nil
}

func (s *Service) flush(ctx context.Context, docs []domdoc.Document, rep *Report, progress Progress) error {
	if err := s.vectorize(ctx, docs, rep); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, t := range s.targets {
		g.Go(func() error {
			if err := t.Indexer.Index(gctx, docs); err != nil {
				return fmt.Errorf("index into %s: %w", t.Name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	rep.Indexed += len(docs)
	if progress != nil {
		_ = progress.Add(len(docs))
	}
	return nil
}

// vectorize fills missing embeddings in place.
func (s *Service) vectorize(ctx context.Context, docs []domdoc.Document, rep *Report) error {
	var (
		texts []string
		idx   []int
	)
	for i := range docs {
		if len(docs[i].Embedding) == 0 {
			texts = append(texts, embeddingText(&docs[i]))
			idx = append(idx, i)
		}
	}
	if len(texts) == 0 {
		return nil
	}
	if s.embed == nil {
		return fmt.Errorf("document %s has no embedding and no embedder is configured: %w",
			docs[idx[0]].ID, domain.ErrEmbeddingProviderError)
	}

	res, err := s.embed.BatchEmbed(ctx, texts)
	if err != nil {
		if errors.Is(err, domain.ErrRateLimited) {
			return fmt.Errorf("vectorize (rate limited, retry later): %w", err)
		}
		return fmt.Errorf("vectorize: %w", err)
	}
	if len(res.Embeddings) != len(texts) {
		return fmt.Errorf("vectorize: got %d embeddings for %d texts: %w",
			len(res.Embeddings), len(texts), domain.ErrEmbeddingProviderError)
	}
	for j, i := range idx {
		if s.dim > 0 && len(res.Embeddings[j]) != s.dim {
			return fmt.Errorf("vectorize %s: dimension %d, want %d: %w",
				docs[i].ID, len(res.Embeddings[j]), s.dim, domain.ErrEmbeddingProviderError)
		}
		docs[i].Embedding = res.Embeddings[j]
	}
	rep.Embedded += len(texts)
	rep.Tokens += res.TotalTokens
	return nil
}
