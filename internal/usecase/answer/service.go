// Package answer produces the grounded agent script from re-ranked documents.
package answer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/callrag/internal/domain"
	"github.com/kailas-cloud/callrag/internal/domain/keyword"
	"github.com/kailas-cloud/callrag/internal/domain/retrieval"
	"github.com/kailas-cloud/callrag/internal/logger"
	"github.com/kailas-cloud/callrag/internal/metrics"
)

const (
	DefaultTemperature float32 = 0.2
	DefaultMaxTokens           = 220
)

var errNoChatModel = errors.New("chat model not configured")

// StopTokens cut off any speaker-label continuation.
var StopTokens = []string{"고객:", "상담사:", "상담원:", "Customer:", "Agent:"}

// Generation outcome labels.
const (
	statusOK       = "ok"
	statusSpliced  = "spliced"
	statusFallback = "fallback"
)

// Options tune the chat call.
type Options struct {
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// Input is what the generator grounds on.
type Input struct {
	Query    string
	Keywords keyword.Keywords
	Items    []retrieval.Item
}

// Result is the final script.
type Result struct {
	Message  string
	Fallback bool
	Spliced  bool
}

// Service generates scripts through a chat model with a deterministic fallback.
type Service struct {
	chat domain.ChatModel
	opts Options
}

// New creates the generator. A nil chat model always yields the fallback.
func New(chat domain.ChatModel, opts Options) *Service {
	if opts.Temperature <= 0 {
		opts.Temperature = DefaultTemperature
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	return &Service{chat: chat, opts: opts}
}

// Generate returns the script. When the model fails or produces nothing usable the
// fallback script is returned together with ErrGenerationUnavailable.
// A cancelled or expired ctx is returned as-is.
func (s *Service) Generate(ctx context.Context, in Input) (Result, error) {
	log := logger.FromContext(ctx)
	titles := titlesOf(in.Items)

	msg, err := s.complete(ctx, in)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		log.Warn("generation failed, using fallback", zap.Error(err))
		return s.fallback(in), fmt.Errorf("%w: %w", domain.ErrGenerationUnavailable, err)
	}

	msg = Sanitize(msg, titles)
	if msg == "" {
		log.Warn("generation produced no usable text, using fallback")
		return s.fallback(in), fmt.Errorf("%w: empty output after sanitizing", domain.ErrGenerationUnavailable)
	}

	res := Result{Message: msg}
	ds := details(topContents(in.Items))
	if len(ds) > 0 && !containsDetail(msg, ds) {
		res.Message = spliceDetail(msg, ds[0])
		res.Spliced = true
		log.Debug("spliced detail into script", zap.String("detail", ds[0]))
	}

	status := statusOK
	if res.Spliced {
		status = statusSpliced
	}
	metrics.GenerationTotal.WithLabelValues(status).Inc()
	return res, nil
}

func (s *Service) complete(ctx context.Context, in Input) (string, error) {
	if s.chat == nil {
		return "", errNoChatModel
	}
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}
	return s.chat.Chat(ctx, domain.ChatRequest{
		Messages:    buildMessages(in.Query, in.Keywords, in.Items),
		Temperature: s.opts.Temperature,
		MaxTokens:   s.opts.MaxTokens,
		Stop:        StopTokens,
	})
}

func (s *Service) fallback(in Input) Result {
	metrics.GenerationTotal.WithLabelValues(statusFallback).Inc()
	return Result{Message: Fallback(in.Keywords.Intent, in.Items), Fallback: true}
}

func topContents(items []retrieval.Item) []string {
	out := make([]string, 0, maxRefDocs)
	for _, it := range items {
		if len(out) == maxRefDocs {
			break
		}
		if it.Content != "" {
			out = append(out, it.Content)
		}
	}
	return out
}
