// Package assist runs the retrieval-and-grounding pipeline for one agent query.
package assist

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/callrag/internal/domain"
	"github.com/kailas-cloud/callrag/internal/domain/keyword"
	"github.com/kailas-cloud/callrag/internal/domain/retrieval"
	domroute "github.com/kailas-cloud/callrag/internal/domain/route"
	"github.com/kailas-cloud/callrag/internal/domain/scope"
	"github.com/kailas-cloud/callrag/internal/domain/vocab"
	"github.com/kailas-cloud/callrag/internal/logger"
	"github.com/kailas-cloud/callrag/internal/metrics"
	"github.com/kailas-cloud/callrag/internal/usecase/answer"
	"github.com/kailas-cloud/callrag/internal/usecase/cache"
	"github.com/kailas-cloud/callrag/internal/usecase/pin"
	"github.com/kailas-cloud/callrag/internal/usecase/route"
	"github.com/kailas-cloud/callrag/internal/usecase/search"
)

const (
	DefaultDeadline = 4 * time.Second
	DefaultTopK     = 5
	MaxTopK         = 20
)

// Pipeline stages reported in deadline errors.
const (
	stageExtract  = "extract"
	stageCache    = "cache"
	stageEmbed    = "embed"
	stageRetrieve = "retrieve"
	stagePin      = "pin"
	stageRerank   = "rerank"
	stageGenerate = "generate"
)

// Options bound a request.
type Options struct {
	Deadline    time.Duration
	DefaultTopK int
	MaxTopK     int
}

// Components are the pipeline stages. Embedder, Exact and Semantic may be nil.
type Components struct {
	Vocabulary *vocab.Vocabulary
	Extractor  Extractor
	Gate       Gate
	Embedder   Embedder
	Retriever  Retriever
	Pins       Pinner
	Reranker   Reranker
	Generator  Generator
	Exact      ExactCache
	Semantic   SemanticCache
}

// Service orchestrates the pipeline. Safe for concurrent use.
type Service struct {
	c    Components
	opts Options
}

// New creates the orchestrator.
func New(c Components, opts Options) *Service {
	if opts.Deadline <= 0 {
		opts.Deadline = DefaultDeadline
	}
	if opts.MaxTopK <= 0 {
		opts.MaxTopK = MaxTopK
	}
	if opts.DefaultTopK <= 0 {
		opts.DefaultTopK = DefaultTopK
	}
	opts.DefaultTopK = min(opts.DefaultTopK, opts.MaxTopK)
	return &Service{c: c, opts: opts}
}

// CacheStats returns hit/miss counters per cache tier.
func (s *Service) CacheStats() map[string]cache.Stats {
	out := make(map[string]cache.Stats, 2)
	if s.c.Exact != nil {
		out[cache.TierExact] = s.c.Exact.Stats()
	}
	if s.c.Semantic != nil {
		out[cache.TierSemantic] = s.c.Semantic.Stats()
	}
	return out
}

type outcome struct {
	resp *Response
	err  error
}

// Assist runs the pipeline under the request deadline. Component failures are classified into
// Response.Errors. The only errors returned are invalid requests, caller cancellation and
// *domain.DeadlineError; a partial result never accompanies them.
func (s *Service) Assist(ctx context.Context, req Request) (*Response, error) {
	if err := s.normalize(&req); err != nil {
		return nil, err
	}

	ctx, log := logger.With(ctx, zap.String("correlation_id", req.CorrelationID))
	ctx, cancel := context.WithTimeout(ctx, s.opts.Deadline)
	defer cancel()

	start := time.Now()
	var stage atomic.Value
	stage.Store(stageExtract)

	done := make(chan outcome, 1)
	go func() {
		resp, err := s.run(ctx, req, &stage)
		done <- outcome{resp: resp, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out = outcome{err: ctx.Err()}
	}

	if out.err != nil {
		return nil, s.abort(ctx, out.err, stage.Load().(string))
	}

	metrics.AssistDuration.WithLabelValues(string(out.resp.Route), out.resp.CacheHit).Observe(time.Since(start).Seconds())
	log.Info("Assist completed",
		zap.String("route", string(out.resp.Route)),
		zap.String("cache_hit", out.resp.CacheHit),
		zap.Int("documents", len(out.resp.Documents)),
		zap.Any("errors", out.resp.Errors),
		zap.Duration("took", time.Since(start)),
	)
	return out.resp, nil
}

func (s *Service) normalize(req *Request) error {
	if _, err := domroute.ParseName(req.RouteHint); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	switch {
	case req.TopK < 0:
		return fmt.Errorf("%w: top_k must not be negative", domain.ErrInvalidRequest)
	case req.TopK == 0:
		req.TopK = s.opts.DefaultTopK
	case req.TopK > s.opts.MaxTopK:
		req.TopK = s.opts.MaxTopK
	}
	if req.AllowPins == nil {
		allow := true
		req.AllowPins = &allow
	}
	if req.CorrelationID == "" {
		req.CorrelationID = uuid.NewString()
	}
	return nil
}

// abort converts a context failure into the returned error.
func (s *Service) abort(ctx context.Context, err error, stage string) error {
	log := logger.FromContext(ctx)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		metrics.PipelineErrorsTotal.WithLabelValues(string(domain.CodeDeadlineExceeded)).Inc()
		log.Warn("Assist deadline exceeded", zap.String("stage", stage), zap.Duration("deadline", s.opts.Deadline))
		return domain.NewDeadlineError(stage, s.opts.Deadline)
	}
	log.Info("Assist aborted", zap.String("stage", stage), zap.Error(err))
	return fmt.Errorf("assist %s: %w", stage, err)
}

// errorSet collects classified codes once each.
type errorSet struct {
	codes []domain.ErrorCode
	log   *zap.Logger
}

func (e *errorSet) add(err error, msg string) {
	e.addCode(domain.CodeOf(err), msg, err)
}

func (e *errorSet) addCode(code domain.ErrorCode, msg string, err error) {
	for _, c := range e.codes {
		if c == code {
			return
		}
	}
	e.codes = append(e.codes, code)
	metrics.PipelineErrorsTotal.WithLabelValues(string(code)).Inc()
	e.log.Warn(msg, zap.String("code", string(code)), zap.Error(err))
}

func (s *Service) run(ctx context.Context, req Request, stage *atomic.Value) (*Response, error) {
	log := logger.FromContext(ctx)
	errs := &errorSet{codes: []domain.ErrorCode{}, log: log}
	t := time.Now()

	kw, err := s.c.Extractor.Extract(req.Query)
	if err != nil {
		errs.add(err, "Keyword extraction degraded")
	}
	r := route.Resolve(kw, domroute.Name(req.RouteHint))
	dec := s.c.Gate.Decide(req.Query, kw)
	log.Debug("Query analysed",
		zap.String("corrected", kw.CorrectedText),
		zap.String("route", string(r.Name)),
		zap.Int("domain_score", dec.DomainScore),
		zap.Duration("took", time.Since(t)),
	)

	resp := &Response{
		CorrelationID: req.CorrelationID,
		Route:         r.Name,
		DomainScore:   dec.DomainScore,
		CacheHit:      CacheNone,
		Documents:     []DocumentView{},
		ConsultDocs:   []string{},
	}

	if dec.NoSearch {
		if dec.Code != "" {
			errs.addCode(dec.Code, "Empty input", nil)
		}
		resp.Message = dec.Clarifier
		resp.Errors = errs.codes
		return resp, nil
	}

	text := kw.CorrectedText
	if text == "" {
		text = req.Query
	}
	plan := s.c.Gate.Policy(req.Query, kw, r)
	mode := dec.Mode
	pinIn := pin.Input{
		Route:     r.Name,
		Query:     cache.NormalizeQuery(text),
		Matched:   r.Matched,
		AllowPins: *req.AllowPins,
	}
	sources := plan.Sources()
	key := cache.Key{
		Route:           string(r.Name),
		ScopePolicy:     fmt.Sprintf("%s;pins=%t", plan.Key(), *req.AllowPins),
		NormalizedQuery: pinIn.Query,
		Filters:         scopeNames(sources),
		TopK:            req.TopK,
	}

	stage.Store(stageCache)
	items, hit := s.lookupExact(ctx, key)
	var embedding []float32
	if hit {
		resp.CacheHit = CacheExact
	} else {
		stage.Store(stageEmbed)
		embedding, mode, err = s.embed(ctx, text, mode)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			errs.add(err, "Query embedding failed, degrading to keyword search")
		}

		if cached, sim, ok := s.lookupSemantic(embedding); ok {
			log.Debug("Semantic cache hit", zap.Float64("similarity", sim))
			resp.CacheHit = CacheSemantic
			stage.Store(stagePin)
			items = s.c.Pins.Apply(ctx, cached, pinIn)
		} else {
			items, err = s.retrieve(ctx, stage, search.Query{
				Text:       text,
				Expansions: expansions(kw),
				Sources:    sources,
				Diverse:    plan.Diverse(),
				Mode:       mode,
				Embedding:  embedding,
				TopK:       req.TopK,
				Signals:    s.signals(kw, r),
			}, pinIn, errs)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				errs.add(err, "Retrieval failed")
				resp.Route = domroute.NoRoute
				resp.Message = RetrievalFailedMessage
				resp.Mode = mode
				resp.Errors = errs.codes
				return resp, nil
			}
			if len(errs.codes) == 0 {
				s.store(ctx, key, text, embedding, items)
			}
		}
	}

	if plan.Diverse() {
		items = retrieval.Diversify(items, req.TopK)
	}
	items = retrieval.Truncate(items, req.TopK)

	stage.Store(stageGenerate)
	t = time.Now()
	ans, err := s.c.Generator.Generate(ctx, answer.Input{Query: req.Query, Keywords: kw, Items: items})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		errs.add(err, "Generation degraded to fallback")
	}
	log.Debug("Script generated", zap.Bool("fallback", ans.Fallback), zap.Duration("took", time.Since(t)))

	resp.Message = ans.Message
	resp.Mode = mode
	resp.Documents, resp.ConsultDocs = toViews(items)
	resp.Errors = errs.codes
	return resp, nil
}

// retrieve runs search, pin merge and rerank. The returned error is either a context
// failure or retrieval_failed; softer failures land in errs.
func (s *Service) retrieve(
	ctx context.Context, stage *atomic.Value, q search.Query, pinIn pin.Input, errs *errorSet,
) ([]retrieval.Item, error) {
	log := logger.FromContext(ctx)

	stage.Store(stageRetrieve)
	t := time.Now()
	res, err := s.c.Retriever.Retrieve(ctx, q)
	if err != nil {
		return nil, err
	}
	if res.Partial {
		errs.addCode(domain.CodeRetrievalPartial, "Retrieval partial",
			fmt.Errorf("%w: failed sources %s", domain.ErrRetrievalPartial, scope.Join(res.Failed)))
	}
	log.Debug("Retrieved", zap.Int("candidates", len(res.Items)), zap.Duration("took", time.Since(t)))

	stage.Store(stagePin)
	items := s.c.Pins.Apply(ctx, res.Items, pinIn)

	stage.Store(stageRerank)
	t = time.Now()
	items, err = s.c.Reranker.Rerank(ctx, q.Text, items, q.Diverse)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		errs.add(err, "Rerank unavailable, keeping fused order")
	}
	log.Debug("Reranked", zap.Int("items", len(items)), zap.Duration("took", time.Since(t)))
	return items, nil
}

func (s *Service) lookupExact(ctx context.Context, key cache.Key) ([]retrieval.Item, bool) {
	if s.c.Exact == nil || !s.c.Exact.Enabled() {
		return nil, false
	}
	return s.c.Exact.Get(ctx, key)
}

func (s *Service) lookupSemantic(embedding []float32) ([]retrieval.Item, float64, bool) {
	if s.c.Semantic == nil || len(embedding) == 0 {
		return nil, 0, false
	}
	return s.c.Semantic.Lookup(embedding)
}

// embed computes the query vector when hybrid search or the semantic cache needs it.
// On failure the mode degrades to keyword-only and the error is classified retrieval_partial.
func (s *Service) embed(ctx context.Context, text string, mode retrieval.Mode) ([]float32, retrieval.Mode, error) {
	if mode != retrieval.Hybrid && s.c.Semantic == nil {
		return nil, mode, nil
	}
	if s.c.Embedder == nil {
		return nil, retrieval.KeywordOnly, nil
	}
	res, err := s.c.Embedder.Embed(ctx, text)
	if err == nil && len(res.Embedding) == 0 {
		err = errors.New("empty embedding")
	}
	if err != nil {
		return nil, retrieval.KeywordOnly, fmt.Errorf("%w: embed query: %w", domain.ErrRetrievalPartial, err)
	}
	return res.Embedding, mode, nil
}

// store populates both caches with a fully healthy post-rerank result.
func (s *Service) store(ctx context.Context, key cache.Key, text string, embedding []float32, items []retrieval.Item) {
	if s.c.Exact != nil && s.c.Exact.Enabled() {
		s.c.Exact.Put(ctx, key, items)
	}
	if s.c.Semantic != nil && len(embedding) > 0 {
		s.c.Semantic.Put(text, embedding, items)
	}
}

func (s *Service) signals(kw keyword.Keywords, r domroute.Route) search.Signals {
	sig := search.Signals{
		Route:     r.Name,
		CardNames: r.Matched.CardNames,
		Actions:   r.Matched.Actions,
		Payments:  r.Matched.Payments,
		Nouns:     kw.Nouns,
	}
	if s.c.Vocabulary != nil {
		sig.IntentTokens = s.c.Vocabulary.IntentTokens(kw.Intent)
	}
	return sig
}

func expansions(kw keyword.Keywords) []string {
	out := make([]string, 0, len(kw.CardNames)+len(kw.Actions)+len(kw.Payments))
	out = append(out, kw.CardNames...)
	out = append(out, kw.Actions...)
	out = append(out, kw.Payments...)
	return out
}

func scopeNames(sources []scope.Scope) []string {
	out := make([]string, len(sources))
	for i, sc := range sources {
		out[i] = string(sc)
	}
	return out
}
