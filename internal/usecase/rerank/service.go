// Package rerank re-orders fused candidates by query-document relevance using a cross-encoder,
// with a bounded LLM scoring fallback.
package rerank

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/callrag/internal/domain"
	"github.com/kailas-cloud/callrag/internal/domain/retrieval"
	"github.com/kailas-cloud/callrag/internal/logger"
	"github.com/kailas-cloud/callrag/internal/metrics"
)

// Defaults.
const (
	DefaultTopK       = 10
	maxLLMCandidates  = 10
	contentPrefixRune = 500
	llmSnippetRunes   = 300
)

// Paths.
const (
	PathCrossEncoder = "cross_encoder"
	PathLLM          = "llm"
)

// CrossEncoder scores (query, document) pairs; higher is more relevant.
type CrossEncoder interface {
	Score(ctx context.Context, query string, documents []string) ([]float64, error)
}

// Options configure the re-ranker.
type Options struct {
	Enabled bool
	TopK    int
	UseLLM  bool
}

// Service is safe for concurrent use.
type Service struct {
	encoder CrossEncoder
	chat    domain.ChatModel
	opts    Options
}

// New creates a re-ranker. encoder and chat may be nil.
func New(encoder CrossEncoder, chat domain.ChatModel, opts Options) *Service {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	return &Service{encoder: encoder, chat: chat, opts: opts}
}

// Rerank deduplicates items by (table, id), scores them and keeps the top K plus any pinned
// item below the cutoff. With diverse set, the best item of a kind (card or guide) missing from
// the top K is kept as well. When no scorer succeeds the fused order is returned, cut the same
// way, with an error wrapping domain.ErrRerankUnavailable.
func (s *Service) Rerank(
	ctx context.Context, query string, items []retrieval.Item, diverse bool,
) ([]retrieval.Item, error) {
	items = retrieval.Dedupe(items)
	if !s.opts.Enabled || len(items) == 0 {
		return s.cut(items, diverse), nil
	}

	var primaryErr error
	if s.encoder != nil {
		out, err := s.crossEncode(ctx, query, items)
		if err == nil {
			out = s.cut(out, diverse)
			metrics.RerankTotal.WithLabelValues(PathCrossEncoder, "ok").Inc()
			return out, nil
		}
		metrics.RerankTotal.WithLabelValues(PathCrossEncoder, "error").Inc()
		logger.FromContext(ctx).Warn("Cross-encoder rerank failed", zap.Error(err))
		primaryErr = err
	} else {
		primaryErr = errors.New("cross-encoder not configured")
	}

	if s.opts.UseLLM && s.chat != nil {
		out, err := s.llmRerank(ctx, query, items)
		if err == nil {
			out = s.cut(out, diverse)
			metrics.RerankTotal.WithLabelValues(PathLLM, "ok").Inc()
			return out, nil
		}
		metrics.RerankTotal.WithLabelValues(PathLLM, "error").Inc()
		logger.FromContext(ctx).Warn("LLM rerank failed", zap.Error(err))
		primaryErr = errors.Join(primaryErr, err)
	}

	return s.cut(items, diverse), fmt.Errorf("%w: %w", domain.ErrRerankUnavailable, primaryErr)
}

func (s *Service) cut(items []retrieval.Item, diverse bool) []retrieval.Item {
	if diverse {
		return retrieval.TruncateKinds(items, s.opts.TopK)
	}
	return retrieval.Truncate(items, s.opts.TopK)
}

func (s *Service) crossEncode(ctx context.Context, query string, items []retrieval.Item) ([]retrieval.Item, error) {
	texts := make([]string, len(items))
	for i, it := range items {
		texts[i] = pairText(it)
	}
	scores, err := s.encoder.Score(ctx, query, texts)
	if err != nil {
		return nil, fmt.Errorf("score: %w", err)
	}
	if len(scores) != len(items) {
		return nil, fmt.Errorf("score: got %d scores for %d documents", len(scores), len(items))
	}

	out := make([]retrieval.Item, len(items))
	copy(out, items)
	for i := range out {
		v := scores[i]
		out[i].RerankScore = &v
	}
	sortByRerank(out)
	return out, nil
}

// sortByRerank orders scored items first by rerank score, unscored items after them, falling
// back to the fused ordering rules.
func sortByRerank(items []retrieval.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].RerankScore, items[j].RerankScore
		switch {
		case a != nil && b != nil && *a != *b:
			return *a > *b
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return retrieval.Less(&items[i], &items[j])
	})
}

// pairText is the document side of a cross-encoder pair: title plus a content prefix.
func pairText(it retrieval.Item) string {
	return strings.TrimSpace(it.Title + " " + truncateRunes(it.Content, contentPrefixRune))
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
