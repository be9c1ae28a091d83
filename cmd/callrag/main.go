package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/callrag/internal/app"
	"github.com/kailas-cloud/callrag/internal/config"
	"github.com/kailas-cloud/callrag/internal/domain"
	"github.com/kailas-cloud/callrag/internal/domain/vocab"
	logpkg "github.com/kailas-cloud/callrag/internal/logger"
	"github.com/kailas-cloud/callrag/internal/metrics"
	chiTransport "github.com/kailas-cloud/callrag/internal/transport/chi"
	"github.com/kailas-cloud/callrag/internal/transport/crossencoder"
	openaiTransport "github.com/kailas-cloud/callrag/internal/transport/openai"
	"github.com/kailas-cloud/callrag/internal/usecase/answer"
	"github.com/kailas-cloud/callrag/internal/usecase/assist"
	"github.com/kailas-cloud/callrag/internal/usecase/cache"
	"github.com/kailas-cloud/callrag/internal/usecase/extract"
	"github.com/kailas-cloud/callrag/internal/usecase/gating"
	healthuc "github.com/kailas-cloud/callrag/internal/usecase/health"
	"github.com/kailas-cloud/callrag/internal/usecase/pin"
	"github.com/kailas-cloud/callrag/internal/usecase/rerank"
	"github.com/kailas-cloud/callrag/internal/usecase/search"
	"github.com/kailas-cloud/callrag/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level, "callrag")
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting callrag API server",
		zap.String("version", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
	)

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterChatMetrics()
	metrics.RegisterPipelineMetrics()

	ctx := context.Background()

	store, err := app.OpenStore(ctx, cfg, "callrag", logger)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer store.Close()

	embedders := app.BuildEmbedders(cfg, store, logger)

	stores, err := app.OpenStores(ctx, cfg, store, logger)
	if err != nil {
		logger.Fatal("Failed to open retrieval stores", zap.Error(err))
	}
	defer stores.Close()

	preset, err := search.LookupPreset(cfg.Retrieval.TuningPreset)
	if err != nil {
		logger.Fatal("Invalid retrieval preset", zap.Error(err))
	}

	v := vocab.Default()
	logger.Info("Vocabulary loaded", zap.String("version", v.Version))

	// Pass nil interfaces (not typed nil pointers) for optional components.
	var chat domain.ChatModel
	var chatClient *openaiTransport.Chat
	if cfg.LLM.Enabled() {
		chatClient = openaiTransport.NewChat(&openaiTransport.ChatConfig{
			APIKey:            cfg.LLM.APIKey,
			BaseURL:           cfg.LLM.BaseURL,
			Model:             cfg.LLM.Model,
			Timeout:           config.Ms(cfg.LLM.TimeoutMs),
			RequestsPerSecond: cfg.LLM.RequestsPerSecond,
			Burst:             cfg.LLM.Burst,
			Logger:            logger,
		})
		chat = chatClient
	} else {
		logger.Warn("No chat model configured, answers use the template fallback")
	}

	var encoder rerank.CrossEncoder
	var encoderClient *crossencoder.Client
	if cfg.Rerank.CrossEncoderURL != "" {
		encoderClient = crossencoder.New(&crossencoder.Config{
			BaseURL: cfg.Rerank.CrossEncoderURL,
			Timeout: config.Ms(cfg.Rerank.TimeoutMs),
			Logger:  logger,
		})
		encoder = encoderClient
	}

	var queryEmbedder assist.Embedder
	if embedders.Query != nil {
		queryEmbedder = embedders.Query
	}

	var shared cache.SharedStore
	if cfg.Cache.ExactShared {
		shared = store
	}

	var semantic assist.SemanticCache
	if cfg.Cache.SemanticEnabled {
		semantic = cache.NewSemantic(
			cfg.Cache.SemanticThreshold,
			config.Sec(cfg.Cache.SemanticTTLSec),
			cfg.Cache.SemanticMaxSize,
		)
	}

	assistSvc := assist.New(assist.Components{
		Vocabulary: v,
		Extractor:  extract.New(v, cfg.Retrieval.PhoneticThreshold),
		Gate:       gating.New(v, cfg.Retrieval.HybridMinScore),
		Embedder:   queryEmbedder,
		Retriever: search.New(stores.Keyword, stores.Vector, preset,
			config.Ms(cfg.Retrieval.PerSourceTimeoutMs), cfg.Retrieval.CandidateK),
		Pins: pin.New(stores.Documents, pin.DefaultRules(),
			cfg.Retrieval.PinScore, config.Sec(cfg.Cache.PinnedDocTTLSec)),
		Reranker: rerank.New(encoder, chat, rerank.Options{
			Enabled: cfg.Rerank.Enabled,
			TopK:    cfg.Rerank.TopK,
			UseLLM:  cfg.Rerank.UseLLM,
		}),
		Generator: answer.New(chat, answer.Options{
			Temperature: cfg.Generation.Temperature,
			MaxTokens:   cfg.Generation.MaxTokens,
			Timeout:     config.Ms(cfg.Generation.TimeoutMs),
		}),
		Exact: cache.NewExact(
			config.Sec(cfg.Cache.RetrievalTTLSec),
			cfg.Cache.RetrievalMaxSize,
			shared,
			cfg.Storage.KeyPrefix,
		),
		Semantic: semantic,
	}, assist.Options{
		Deadline:    config.Ms(cfg.Request.DeadlineMs),
		DefaultTopK: cfg.Request.DefaultTopK,
		MaxTopK:     cfg.Request.MaxTopK,
	})

	health := healthuc.New(store)
	if embedders.Document != nil {
		health.With(healthuc.Embedding, embedders.Document)
	}
	if chatClient != nil {
		health.With(healthuc.Chat, chatClient)
	}
	if encoderClient != nil {
		health.With(healthuc.CrossEncoder, encoderClient)
	}
	for name, c := range stores.Checks {
		health.With(name, c)
	}

	server := chiTransport.NewServer(assistSvc, health, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
		ReadTimeout:  config.Sec(cfg.HTTP.ReadTimeoutSec),
		WriteTimeout: config.Sec(cfg.HTTP.WriteTimeoutSec),
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
