// Package pin injects mandatory documents into retrieval results when a policy predicate fires.
package pin

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/callrag/internal/domain/document"
	"github.com/kailas-cloud/callrag/internal/domain/retrieval"
	"github.com/kailas-cloud/callrag/internal/domain/scope"
	"github.com/kailas-cloud/callrag/internal/logger"
	"github.com/kailas-cloud/callrag/internal/usecase/cache"
)

// Defaults.
const (
	DefaultScore    = 0.001
	DefaultDocTTL   = 600 * time.Second
	defaultDocLimit = 256
)

// DocumentReader resolves documents by ID. Missing IDs are simply absent from the result.
type DocumentReader interface {
	GetMany(ctx context.Context, table document.Table, ids []string) (map[string]document.Document, error)
}

// Service resolves and merges pins.
type Service struct {
	reader DocumentReader
	rules  []Rule
	score  float64
	docs   *cache.Memory[string, document.Document]
}

// New creates a pin service. score <= 0 selects DefaultScore.
func New(reader DocumentReader, rules []Rule, score float64, docTTL time.Duration) *Service {
	if score <= 0 {
		score = DefaultScore
	}
	if docTTL <= 0 {
		docTTL = DefaultDocTTL
	}
	return &Service{
		reader: reader,
		rules:  rules,
		score:  score,
		docs:   cache.NewMemory[string, document.Document](docTTL, defaultDocLimit),
	}
}

// Requests returns the pin requests that fire for in.
func (s *Service) Requests(in Input) []Request {
	return Fire(s.rules, in)
}

// Apply fires the rules and merges their documents into items.
func (s *Service) Apply(ctx context.Context, items []retrieval.Item, in Input) []retrieval.Item {
	reqs := s.Requests(in)
	if len(reqs) == 0 {
		return items
	}
	return s.Merge(ctx, items, reqs)
}

// Merge marks already-present pinned documents and appends the missing ones in request order.
// Existing order is preserved and merging the same requests twice changes nothing.
// Documents the reader cannot resolve are appended as stubs carrying only the ID.
func (s *Service) Merge(ctx context.Context, items []retrieval.Item, reqs []Request) []retrieval.Item {
	out := make([]retrieval.Item, len(items))
	copy(out, items)

	pos := make(map[string]int, len(out))
	for i, it := range out {
		pos[it.Key()] = i
	}

	for _, req := range reqs {
		docs := s.resolve(ctx, req, pos)
		for _, id := range req.IDs {
			key := document.Document{ID: id, Table: req.Table}.Key()
			if i, ok := pos[key]; ok {
				if !out[i].Pinned {
					out[i].Pinned = true
					out[i].Score += s.score
				}
				continue
			}
			doc, ok := docs[id]
			if !ok {
				doc = document.Document{ID: id, Table: req.Table}
			}
			doc.Embedding = nil
			it := retrieval.Item{Document: doc, Score: s.score, Pinned: true, SourceIndex: len(out)}
			if scopes := scope.ScopesFor(req.Table, id); len(scopes) > 0 {
				it.Source = scopes[0]
			}
			pos[key] = len(out)
			out = append(out, it)
		}
	}
	return out
}

// resolve fetches the request's documents that are not already present, using the TTL cache.
func (s *Service) resolve(ctx context.Context, req Request, present map[string]int) map[string]document.Document {
	found := make(map[string]document.Document, len(req.IDs))
	var missing []string
	for _, id := range req.IDs {
		key := document.Document{ID: id, Table: req.Table}.Key()
		if _, ok := present[key]; ok {
			continue
		}
		if d, ok := s.docs.Get(key); ok {
			found[id] = d
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 || s.reader == nil {
		return found
	}

	docs, err := s.reader.GetMany(ctx, req.Table, missing)
	if err != nil {
		logger.FromContext(ctx).Warn("Pinned document lookup failed",
			zap.String("table", string(req.Table)),
			zap.Strings("ids", missing),
			zap.Error(err),
		)
		return found
	}
	for id, d := range docs {
		d.Embedding = nil
		s.docs.Set(d.Key(), d)
		found[id] = d
	}
	return found
}
