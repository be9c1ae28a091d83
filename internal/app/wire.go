// Package app assembles stores, embedders and model clients from configuration.
// Both binaries share it.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/callrag/internal/config"
	dbRedis "github.com/kailas-cloud/callrag/internal/db/redis"
	"github.com/kailas-cloud/callrag/internal/domain"
	"github.com/kailas-cloud/callrag/internal/metrics"
	docrepo "github.com/kailas-cloud/callrag/internal/repository/document"
	"github.com/kailas-cloud/callrag/internal/repository/embcache"
	"github.com/kailas-cloud/callrag/internal/repository/essearch"
	"github.com/kailas-cloud/callrag/internal/repository/pgvector"
	searchrepo "github.com/kailas-cloud/callrag/internal/repository/search"
	openaiTransport "github.com/kailas-cloud/callrag/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/callrag/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/callrag/internal/usecase/health"
	"github.com/kailas-cloud/callrag/internal/usecase/ingest"
	"github.com/kailas-cloud/callrag/internal/usecase/search"
)

// OpenStore connects to Redis as clientName and waits until it answers.
func OpenStore(ctx context.Context, cfg config.Config, clientName string, logger *zap.Logger) (*dbRedis.Store, error) {
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:      cfg.Database.Addrs,
		Password:   cfg.Database.Password,
		ClientName: clientName,
	})
	if err != nil {
		return nil, fmt.Errorf("create redis store: %w", err)
	}
	if err := store.WaitForReady(ctx, config.Sec(cfg.Database.ReadinessTimeout)); err != nil {
		store.Close()
		return nil, fmt.Errorf("redis not ready: %w", err)
	}
	logger.Info("Connected to database", zap.Strings("db_addrs", cfg.Database.Addrs))
	return store, nil
}

// Embedders are the document-side and query-side embedder chains.
// Both are nil when no embedding model is configured.
type Embedders struct {
	Document *embeddinguc.InstrumentedEmbedder
	Query    domain.Embedder
}

// BuildEmbedders assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Query.
func BuildEmbedders(cfg config.Config, store *dbRedis.Store, logger *zap.Logger) Embedders {
	ec := cfg.Embedding
	if !ec.Enabled() {
		logger.Warn("No embedding model configured, retrieval runs keyword-only")
		return Embedders{}
	}

	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     ec.APIKey,
		BaseURL:    ec.BaseURL,
		Model:      ec.Model,
		Dimensions: ec.Dimensions,
		Provider:   ec.Provider,
		Logger:     logger,
	})

	var embedder domain.Embedder = base
	if store != nil {
		embedder = embcache.New(base, store, embcache.Config{
			KeyPrefix: cfg.Storage.KeyPrefix,
			Model:     ec.Model,
			TTL:       time.Duration(ec.CacheTTLHours) * time.Hour,
		}, metrics.EmbeddingCacheTotal, logger)
	}

	doc := embeddinguc.NewInstrumentedEmbedder(embedder, ec.Provider, ec.Model, ec.BatchSize, logger)

	query := domain.NewQueryEmbedder(doc, ec.QueryInstruction, ec.Dimensions)

	logger.Info("Embedders created",
		zap.String("provider", ec.Provider),
		zap.String("model", ec.Model),
		zap.Int("dimensions", ec.Dimensions),
	)
	return Embedders{Document: doc, Query: query}
}

// Stores holds the configured retrieval backends.
type Stores struct {
	Keyword   search.KeywordSearcher
	Vector    search.VectorSearcher
	Documents *docrepo.Repo
	Targets   []ingest.Target
	Checks    map[string]healthuc.Checker

	closers []func()
}

// Close releases secondary store connections. The Redis store is closed by its owner.
func (s *Stores) Close() {
	for _, c := range s.closers {
		c()
	}
}

// OpenStores builds the keyword and vector searchers for the configured drivers.
// Redis always backs the document hashes used for pins.
func OpenStores(ctx context.Context, cfg config.Config, store *dbRedis.Store, logger *zap.Logger) (*Stores, error) {
	dim := 0
	if cfg.Embedding.Enabled() && cfg.Retrieval.VectorDriver == config.DriverRedis {
		dim = cfg.Embedding.Dimensions
	}

	docs := docrepo.New(store, cfg.Storage.KeyPrefix, dim).WithHNSW(docrepo.HNSWConfig{
		M:           cfg.Index.HNSWM,
		EFConstruct: cfg.Index.HNSWEFConstruct,
	})
	redisSearch := searchrepo.New(store, cfg.Storage.KeyPrefix)

	s := &Stores{
		Documents: docs,
		Targets:   []ingest.Target{{Name: "redis", Indexer: docs}},
		Checks:    map[string]healthuc.Checker{},
	}

	switch cfg.Retrieval.KeywordDriver {
	case config.DriverElasticsearch:
		es, err := essearch.New(essearch.Config{
			Addresses:   cfg.Elasticsearch.Addresses,
			Username:    cfg.Elasticsearch.Username,
			Password:    cfg.Elasticsearch.Password,
			IndexPrefix: cfg.Elasticsearch.IndexPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("elasticsearch: %w", err)
		}
		s.Keyword = es
		s.Targets = append(s.Targets, ingest.Target{Name: config.DriverElasticsearch, Indexer: es})
		s.Checks[healthuc.Elasticsearch] = es
	default:
		s.Keyword = redisSearch
	}

	if cfg.Embedding.Enabled() {
		switch cfg.Retrieval.VectorDriver {
		case config.DriverPgvector:
			pg, err := pgvector.Connect(ctx, pgvector.Config{
				DSN:   cfg.Postgres.DSN,
				Table: cfg.Postgres.Table,
				Dim:   cfg.Embedding.Dimensions,
			})
			if err != nil {
				s.Close()
				return nil, fmt.Errorf("pgvector: %w", err)
			}
			s.closers = append(s.closers, pg.Close)
			s.Vector = pg
			s.Targets = append(s.Targets, ingest.Target{Name: config.DriverPgvector, Indexer: pg})
			s.Checks[healthuc.Postgres] = pg
		default:
			s.Vector = redisSearch
		}
	}

	logger.Info("Retrieval stores ready",
		zap.String("keyword_driver", cfg.Retrieval.KeywordDriver),
		zap.String("vector_driver", cfg.Retrieval.VectorDriver),
		zap.Bool("vector_enabled", s.Vector != nil),
	)
	return s, nil
}
