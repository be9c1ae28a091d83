// Package search implements hybrid retrieval: per-source keyword and vector search fused with
// Reciprocal Rank Fusion, preset boosts, cross-source merge and card/guide diversity.
package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/callrag/internal/domain"
	"github.com/kailas-cloud/callrag/internal/domain/document"
	"github.com/kailas-cloud/callrag/internal/domain/retrieval"
	"github.com/kailas-cloud/callrag/internal/domain/scope"
	"github.com/kailas-cloud/callrag/internal/logger"
	"github.com/kailas-cloud/callrag/internal/metrics"
)

// Defaults.
const (
	DefaultPerSourceTimeout = 800 * time.Millisecond
	DefaultCandidateK       = 20
	maxExpansions           = 8
)

// Query is one retrieval request.
type Query struct {
	Text       string
	Expansions []string
	Sources    []scope.Scope
	// Diverse enables the card/guide diversity rule on the returned top-K.
	Diverse   bool
	Mode      retrieval.Mode
	Embedding []float32
	TopK      int
	Signals   Signals
}

// Result is the fused, boosted candidate list. Partial is set when some sources failed.
type Result struct {
	Items   []retrieval.Item
	Partial bool
	Failed  []scope.Scope
}

// Service handles hybrid retrieval across scope-filtered sources.
type Service struct {
	keyword    KeywordSearcher
	vector     VectorSearcher
	preset     Preset
	perSource  time.Duration
	candidateK int
}

// New creates a retrieval service. vector may be nil (keyword-only deployments).
func New(kw KeywordSearcher, vec VectorSearcher, preset Preset, perSource time.Duration, candidateK int) *Service {
	if perSource <= 0 {
		perSource = DefaultPerSourceTimeout
	}
	if candidateK <= 0 {
		candidateK = DefaultCandidateK
	}
	return &Service{keyword: kw, vector: vec, preset: preset, perSource: perSource, candidateK: candidateK}
}

// Preset returns the active tuning preset.
func (s *Service) Preset() Preset { return s.preset }

type sourceResult struct {
	items []retrieval.Item
	err   error
}

// Retrieve queries every source in parallel, each under its own timeout. Failed or timed-out
// sources are dropped; when none succeed the error wraps domain.ErrRetrievalFailed.
func (s *Service) Retrieve(ctx context.Context, q Query) (Result, error) {
	if len(q.Sources) == 0 {
		return Result{}, fmt.Errorf("%w: no sources", domain.ErrRetrievalFailed)
	}
	for _, sc := range q.Sources {
		sc.MustValid()
	}

	results := make([]sourceResult, len(q.Sources))
	var g errgroup.Group
	for i, sc := range q.Sources {
		g.Go(func() error {
			items, err := s.searchSource(ctx, q, sc, i)
			results[i] = sourceResult{items: items, err: err}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("retrieve: %w", err)
	}

	log := logger.FromContext(ctx)
	var res Result
	var perSource [][]retrieval.Item
	for i, r := range results {
		if r.err != nil {
			reason := "error"
			if errors.Is(r.err, context.DeadlineExceeded) {
				reason = "timeout"
			}
			metrics.RetrievalSourceFailuresTotal.WithLabelValues(string(q.Sources[i]), reason).Inc()
			log.Warn("Retrieval source dropped",
				zap.String("scope", string(q.Sources[i])),
				zap.String("reason", reason),
				zap.Error(r.err),
			)
			res.Failed = append(res.Failed, q.Sources[i])
			continue
		}
		perSource = append(perSource, r.items)
	}
	if len(perSource) == 0 {
		return Result{Failed: res.Failed}, fmt.Errorf("%w: all %d sources failed", domain.ErrRetrievalFailed, len(q.Sources))
	}
	res.Partial = len(res.Failed) > 0

	items := mergeSources(perSource)
	applyBoosts(items, q.Signals, s.preset)
	if q.Diverse {
		items = retrieval.Diversify(items, q.TopK)
	}
	res.Items = items
	return res, nil
}

// searchSource runs keyword and (in hybrid mode) vector search for one scope concurrently.
// The source fails only when every search it ran failed.
func (s *Service) searchSource(
	ctx context.Context, q Query, sc scope.Scope, idx int,
) ([]retrieval.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, s.perSource)
	defer cancel()

	var (
		kwHits, vecHits []document.Hit
		kwErr, vecErr   error
		mu              sync.Mutex
	)
	runVector := q.Mode == retrieval.Hybrid && len(q.Embedding) > 0 && s.vector != nil

	var g errgroup.Group
	g.Go(func() error {
		start := time.Now()
		hits, err := s.keyword.SearchKeyword(ctx, sc, q.Text, boundExpansions(q.Expansions), s.candidateK)
		metrics.RetrievalSourceDuration.WithLabelValues(string(sc), "keyword").Observe(time.Since(start).Seconds())
		mu.Lock()
		kwHits, kwErr = hits, err
		mu.Unlock()
		return nil
	})
	if runVector {
		g.Go(func() error {
			start := time.Now()
			hits, err := s.vector.SearchVector(ctx, sc, q.Embedding, s.candidateK)
			metrics.RetrievalSourceDuration.WithLabelValues(string(sc), "vector").Observe(time.Since(start).Seconds())
			mu.Lock()
			vecHits, vecErr = hits, err
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if kwErr != nil && (!runVector || vecErr != nil) {
		return nil, errors.Join(kwErr, vecErr)
	}
	if kwErr != nil || vecErr != nil {
		logger.FromContext(ctx).Warn("Partial source search",
			zap.String("scope", string(sc)),
			zap.NamedError("keyword_error", kwErr),
			zap.NamedError("vector_error", vecErr),
		)
	}
	return fuseRRF(filterScope(kwHits, sc), filterScope(vecHits, sc), s.preset, sc, idx), nil
}

// filterScope re-checks store hits against the scope predicate.
func filterScope(hits []document.Hit, sc scope.Scope) []document.Hit {
	out := hits[:0:0]
	for _, h := range hits {
		if h.Table == sc.Table() && sc.Matches(h.ID) {
			out = append(out, h)
		}
	}
	return out
}

// mergeSources dedupes by (table, id) across sources, keeping the higher fused score and the
// earlier source index.
func mergeSources(perSource [][]retrieval.Item) []retrieval.Item {
	index := make(map[string]int)
	var out []retrieval.Item
	for _, items := range perSource {
		for _, it := range items {
			key := it.Key()
			pos, ok := index[key]
			if !ok {
				index[key] = len(out)
				out = append(out, it)
				continue
			}
			cur := &out[pos]
			if it.Score > cur.Score {
				srcIdx, src := cur.SourceIndex, cur.Source
				*cur = it
				if srcIdx < it.SourceIndex {
					cur.SourceIndex, cur.Source = srcIdx, src
				}
			}
		}
	}
	retrieval.Sort(out)
	return out
}

func boundExpansions(exp []string) []string {
	seen := make(map[string]bool, len(exp))
	out := make([]string, 0, min(len(exp), maxExpansions))
	for _, e := range exp {
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
		if len(out) == maxExpansions {
			break
		}
	}
	return out
}
