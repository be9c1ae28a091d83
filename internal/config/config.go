package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverRedis         = "redis"
	DriverElasticsearch = "elasticsearch"
	DriverPgvector      = "pgvector"
)

// Config holds the callrag configuration.
type Config struct {
	HTTP          HTTPConfig          `yaml:"http"`
	Database      DatabaseConfig      `yaml:"database"`
	Storage       StorageConfig       `yaml:"storage"`
	Index         IndexConfig         `yaml:"index"`
	Embedding     EmbeddingConfig     `yaml:"embedding"`
	LLM           LLMConfig           `yaml:"llm"`
	Retrieval     RetrievalConfig     `yaml:"retrieval"`
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch"`
	Postgres      PostgresConfig      `yaml:"postgres"`
	Cache         CacheConfig         `yaml:"cache"`
	Rerank        RerankConfig        `yaml:"rerank"`
	Generation    GenerationConfig    `yaml:"generation"`
	Request       RequestConfig       `yaml:"request"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds Redis connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// IndexConfig holds HNSW parameters for the Redis vector index.
type IndexConfig struct {
	HNSWM           int `yaml:"hnsw_m"`
	HNSWEFConstruct int `yaml:"hnsw_ef_construction"`
	LoadBatchSize   int `yaml:"load_batch_size"`
}

// EmbeddingConfig holds the embedding provider settings.
type EmbeddingConfig struct {
	Provider         string `yaml:"provider"`
	BaseURL          string `yaml:"base_url"`
	APIKey           string `yaml:"api_key"`
	Model            string `yaml:"model"`
	Dimensions       int    `yaml:"dimensions"`
	QueryInstruction string `yaml:"query_instruction"`
	CacheTTLHours    int    `yaml:"cache_ttl_hours"`
	BatchSize        int    `yaml:"batch_size"`
}

// Enabled reports whether an embedding model is configured.
func (e EmbeddingConfig) Enabled() bool { return e.Model != "" }

// LLMConfig holds the chat model settings.
type LLMConfig struct {
	BaseURL           string  `yaml:"base_url"`
	APIKey            string  `yaml:"api_key"`
	Model             string  `yaml:"model"`
	TimeoutMs         int     `yaml:"timeout_ms"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// Enabled reports whether a chat model is configured.
func (l LLMConfig) Enabled() bool { return l.Model != "" }

// RetrievalConfig selects the stores and tunes the hybrid retriever.
type RetrievalConfig struct {
	KeywordDriver      string  `yaml:"keyword_driver"`
	VectorDriver       string  `yaml:"vector_driver"`
	PerSourceTimeoutMs int     `yaml:"per_source_timeout_ms"`
	CandidateK         int     `yaml:"candidate_k"`
	TuningPreset       string  `yaml:"tuning_preset"`
	HybridMinScore     int     `yaml:"hybrid_min_score"`
	PinScore           float64 `yaml:"pin_score"`
	PhoneticThreshold  float64 `yaml:"phonetic_threshold"`
}

// ElasticsearchConfig holds the keyword store settings for the elasticsearch driver.
type ElasticsearchConfig struct {
	Addresses   []string `yaml:"addresses"`
	Username    string   `yaml:"username"`
	Password    string   `yaml:"password"`
	IndexPrefix string   `yaml:"index_prefix"`
}

// PostgresConfig holds the vector store settings for the pgvector driver.
type PostgresConfig struct {
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table"`
}

// CacheConfig holds retrieval cache settings.
type CacheConfig struct {
	RetrievalTTLSec   int     `yaml:"retrieval_ttl_s"`
	RetrievalMaxSize  int     `yaml:"retrieval_max_size"`
	ExactShared       bool    `yaml:"exact_shared"`
	SemanticEnabled   bool    `yaml:"semantic_enabled"`
	SemanticThreshold float64 `yaml:"semantic_threshold"`
	SemanticTTLSec    int     `yaml:"semantic_ttl_s"`
	SemanticMaxSize   int     `yaml:"semantic_max_size"`
	PinnedDocTTLSec   int     `yaml:"pinned_doc_ttl_s"`
}

// RerankConfig holds re-ranker settings.
type RerankConfig struct {
	Enabled         bool   `yaml:"enabled"`
	TopK            int    `yaml:"top_k"`
	UseLLM          bool   `yaml:"use_llm"`
	CrossEncoderURL string `yaml:"cross_encoder_url"`
	TimeoutMs       int    `yaml:"timeout_ms"`
}

// GenerationConfig holds answer generator settings.
type GenerationConfig struct {
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	TimeoutMs   int     `yaml:"timeout_ms"`
}

// RequestConfig bounds a single assist request.
type RequestConfig struct {
	DeadlineMs  int `yaml:"deadline_ms"`
	DefaultTopK int `yaml:"default_top_k"`
	MaxTopK     int `yaml:"max_top_k"`
}

// Ms converts a millisecond setting to a duration.
func Ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

// Sec converts a second setting to a duration.
func Sec(v int) time.Duration { return time.Duration(v) * time.Second }

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// A .env file in the working directory is loaded first when present.
func Load(env string) (Config, error) {
	_ = godotenv.Load()

	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes YAML after environment expansion, then applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "callrag:"
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}
	if c.Index.LoadBatchSize <= 0 {
		c.Index.LoadBatchSize = 64
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.CacheTTLHours <= 0 {
		c.Embedding.CacheTTLHours = 30 * 24
	}
	if c.LLM.TimeoutMs <= 0 {
		c.LLM.TimeoutMs = 3000
	}
	if c.LLM.Burst <= 0 {
		c.LLM.Burst = 1
	}

	if c.Retrieval.KeywordDriver == "" {
		c.Retrieval.KeywordDriver = DriverRedis
	}
	if c.Retrieval.VectorDriver == "" {
		c.Retrieval.VectorDriver = DriverRedis
	}
	if c.Retrieval.PerSourceTimeoutMs <= 0 {
		c.Retrieval.PerSourceTimeoutMs = 1500
	}
	if c.Retrieval.CandidateK <= 0 {
		c.Retrieval.CandidateK = 30
	}
	if c.Retrieval.TuningPreset == "" {
		c.Retrieval.TuningPreset = "balanced"
	}
	if c.Elasticsearch.IndexPrefix == "" {
		c.Elasticsearch.IndexPrefix = "callrag-"
	}
	if c.Postgres.Table == "" {
		c.Postgres.Table = "callrag_documents"
	}

	if c.Cache.RetrievalTTLSec == 0 {
		c.Cache.RetrievalTTLSec = 60
	}
	if c.Cache.RetrievalMaxSize <= 0 {
		c.Cache.RetrievalMaxSize = 1000
	}
	if c.Cache.SemanticThreshold <= 0 {
		c.Cache.SemanticThreshold = 0.85
	}
	if c.Cache.SemanticTTLSec <= 0 {
		c.Cache.SemanticTTLSec = 300
	}
	if c.Cache.SemanticMaxSize <= 0 {
		c.Cache.SemanticMaxSize = 200
	}
	if c.Cache.PinnedDocTTLSec <= 0 {
		c.Cache.PinnedDocTTLSec = 600
	}

	if c.Rerank.TopK <= 0 {
		c.Rerank.TopK = 5
	}
	if c.Rerank.TimeoutMs <= 0 {
		c.Rerank.TimeoutMs = 1500
	}
	if c.Generation.Temperature <= 0 {
		c.Generation.Temperature = 0.2
	}
	if c.Generation.MaxTokens <= 0 {
		c.Generation.MaxTokens = 220
	}
	if c.Generation.TimeoutMs <= 0 {
		c.Generation.TimeoutMs = 2500
	}

	if c.Request.DeadlineMs <= 0 {
		c.Request.DeadlineMs = 4000
	}
	if c.Request.MaxTopK <= 0 {
		c.Request.MaxTopK = 20
	}
	if c.Request.DefaultTopK <= 0 {
		c.Request.DefaultTopK = 5
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	var errs []error

	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port))
	}
	if len(c.Database.Addrs) == 0 {
		errs = append(errs, errors.New("database.addrs is required"))
	}

	switch c.Retrieval.KeywordDriver {
	case DriverRedis:
	case DriverElasticsearch:
		if len(c.Elasticsearch.Addresses) == 0 {
			errs = append(errs, errors.New("elasticsearch.addresses is required for keyword_driver elasticsearch"))
		}
	default:
		errs = append(errs, fmt.Errorf("retrieval.keyword_driver must be %q or %q, got %q",
			DriverRedis, DriverElasticsearch, c.Retrieval.KeywordDriver))
	}

	switch c.Retrieval.VectorDriver {
	case DriverRedis:
	case DriverPgvector:
		if c.Postgres.DSN == "" {
			errs = append(errs, errors.New("postgres.dsn is required for vector_driver pgvector"))
		}
	default:
		errs = append(errs, fmt.Errorf("retrieval.vector_driver must be %q or %q, got %q",
			DriverRedis, DriverPgvector, c.Retrieval.VectorDriver))
	}

	if c.Embedding.Enabled() && c.Embedding.Dimensions <= 0 {
		errs = append(errs, errors.New("embedding.dimensions is required when embedding.model is set"))
	}
	if c.Cache.SemanticThreshold > 1 {
		errs = append(errs, fmt.Errorf("cache.semantic_threshold must be in (0, 1], got %g", c.Cache.SemanticThreshold))
	}
	if c.Cache.SemanticEnabled && !c.Embedding.Enabled() {
		errs = append(errs, errors.New("cache.semantic_enabled requires embedding.model"))
	}
	if c.Rerank.UseLLM && !c.LLM.Enabled() {
		errs = append(errs, errors.New("rerank.use_llm requires llm.model"))
	}
	if c.Request.DefaultTopK > c.Request.MaxTopK {
		errs = append(errs, fmt.Errorf("request.default_top_k (%d) must not exceed request.max_top_k (%d)",
			c.Request.DefaultTopK, c.Request.MaxTopK))
	}

	return errors.Join(errs...)
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
