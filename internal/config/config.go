// Package config defines all configuration structures for the patent novelty
// analysis pipeline.  No I/O or parsing logic lives here — only plain data
// types and validation.
package config

import (
	"fmt"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrationPath   string        `mapstructure:"migration_path"`
}

// RedisConfig holds Redis connection parameters for the shared embedding cache.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	DefaultTTL   time.Duration `mapstructure:"default_ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// KafkaConfig holds Kafka producer/consumer parameters for the pipeline
// request/result topics.
type KafkaConfig struct {
	Brokers         []string      `mapstructure:"brokers"`
	GroupID         string        `mapstructure:"group_id"`
	TopicPrefix     string        `mapstructure:"topic_prefix"`
	StartOffset     string        `mapstructure:"start_offset"` // "earliest" | "latest"
	CommitInterval  time.Duration `mapstructure:"commit_interval"`
	ProducerRetries int           `mapstructure:"producer_retries"`
	BatchSize       int           `mapstructure:"batch_size"`
	MinBytes        int           `mapstructure:"min_bytes"`
	MaxBytes        int           `mapstructure:"max_bytes"`
}

// OpenSearchConfig holds OpenSearch cluster connection parameters for the
// external lexical search backend.
type OpenSearchConfig struct {
	Addresses          []string `mapstructure:"addresses"`
	User               string   `mapstructure:"user"`
	Password           string   `mapstructure:"password"`
	InsecureSkipVerify bool     `mapstructure:"insecure_skip_verify"`
	IndexPrefix        string   `mapstructure:"index_prefix"`
}

// MilvusConfig holds Milvus vector-store connection parameters for dense
// claim-embedding search.
type MilvusConfig struct {
	Addr             string `mapstructure:"addr"`
	DBName           string `mapstructure:"db_name"`
	EmbeddingDim     int    `mapstructure:"embedding_dim"`
	IndexType        string `mapstructure:"index_type"`
	MetricType       string `mapstructure:"metric_type"`
	NProbe           int    `mapstructure:"n_probe"`
	CollectionPrefix string `mapstructure:"collection_prefix"`
}

// ProviderConfig holds embedding-provider (OpenAI-compatible) parameters.
type ProviderConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	EmbeddingModel string        `mapstructure:"embedding_model"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
	CacheSize      int           `mapstructure:"cache_size"`
}

// RetrievalConfig holds hybrid retrieval tunables.
type RetrievalConfig struct {
	DefaultTopK   int     `mapstructure:"default_top_k"`
	MaxTopK       int     `mapstructure:"max_top_k"`
	BM25K1        float64 `mapstructure:"bm25_k1"`
	BM25B         float64 `mapstructure:"bm25_b"`
	EnableRerank  bool    `mapstructure:"enable_rerank"`
	LexicalBackend string `mapstructure:"lexical_backend"` // "memory" | "opensearch"
}

// NoveltyConfig holds novelty-scoring tunables.
type NoveltyConfig struct {
	MaxPairwiseComparisons int `mapstructure:"max_pairwise_comparisons"`
	TopAlignmentsPerClause int `mapstructure:"top_alignments_per_clause"`
}

// CorpusConfig holds in-process corpus snapshot parameters.
type CorpusConfig struct {
	RebuildInterval time.Duration `mapstructure:"rebuild_interval"`
	MinTokenLength  int           `mapstructure:"min_token_length"`
}

// WorkerConfig holds background-worker execution parameters.
type WorkerConfig struct {
	Concurrency    int           `mapstructure:"concurrency"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryBackoff   time.Duration `mapstructure:"retry_backoff"`
	ShutdownGrace  time.Duration `mapstructure:"shutdown_grace"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level            string `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format           string `mapstructure:"format"` // "json" | "text"
	Output           string `mapstructure:"output"`
	EnableCaller     bool   `mapstructure:"enable_caller"`
	EnableStacktrace bool   `mapstructure:"enable_stacktrace"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure for the pipeline.  Every
// infrastructure component and application service reads its settings from
// the relevant sub-struct.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	OpenSearch OpenSearchConfig `mapstructure:"opensearch"`
	Milvus     MilvusConfig     `mapstructure:"milvus"`
	Provider   ProviderConfig   `mapstructure:"provider"`
	Retrieval  RetrievalConfig  `mapstructure:"retrieval"`
	Novelty    NoveltyConfig    `mapstructure:"novelty"`
	Corpus     CorpusConfig     `mapstructure:"corpus"`
	Worker     WorkerConfig     `mapstructure:"worker"`
	Log        LogConfig        `mapstructure:"log"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config.
// It returns the first error encountered; callers should treat any error as
// fatal and refuse to start the application.
func (c *Config) Validate() error {
	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}

	// Database
	if c.Database.Host == "" {
		return fmt.Errorf("config: database.host is required")
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("config: database.port %d is out of range [1, 65535]", c.Database.Port)
	}
	if c.Database.User == "" {
		return fmt.Errorf("config: database.user is required")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("config: database.db_name is required")
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("config: database.max_conns must be ≥ 1, got %d", c.Database.MaxConns)
	}

	// Redis
	if c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("config: redis.db must be ≥ 0, got %d", c.Redis.DB)
	}

	// Kafka
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
	}
	if c.Kafka.GroupID == "" {
		return fmt.Errorf("config: kafka.group_id is required")
	}
	switch c.Kafka.StartOffset {
	case "earliest", "latest":
	default:
		return fmt.Errorf("config: kafka.start_offset %q is invalid; expected earliest|latest", c.Kafka.StartOffset)
	}

	// Milvus
	if c.Milvus.Addr == "" {
		return fmt.Errorf("config: milvus.addr is required")
	}
	if c.Milvus.EmbeddingDim < 1 {
		return fmt.Errorf("config: milvus.embedding_dim must be ≥ 1, got %d", c.Milvus.EmbeddingDim)
	}

	// Retrieval
	if c.Retrieval.DefaultTopK < 1 {
		return fmt.Errorf("config: retrieval.default_top_k must be ≥ 1, got %d", c.Retrieval.DefaultTopK)
	}
	if c.Retrieval.MaxTopK < c.Retrieval.DefaultTopK {
		return fmt.Errorf("config: retrieval.max_top_k %d must be ≥ retrieval.default_top_k %d",
			c.Retrieval.MaxTopK, c.Retrieval.DefaultTopK)
	}
	if c.Retrieval.BM25K1 <= 0 {
		return fmt.Errorf("config: retrieval.bm25_k1 must be > 0, got %g", c.Retrieval.BM25K1)
	}
	if c.Retrieval.BM25B < 0 || c.Retrieval.BM25B > 1 {
		return fmt.Errorf("config: retrieval.bm25_b %g is out of range [0, 1]", c.Retrieval.BM25B)
	}
	switch c.Retrieval.LexicalBackend {
	case "memory", "opensearch":
	default:
		return fmt.Errorf("config: retrieval.lexical_backend %q is invalid; expected memory|opensearch",
			c.Retrieval.LexicalBackend)
	}

	// Novelty
	if c.Novelty.MaxPairwiseComparisons < 1 {
		return fmt.Errorf("config: novelty.max_pairwise_comparisons must be ≥ 1, got %d",
			c.Novelty.MaxPairwiseComparisons)
	}
	if c.Novelty.TopAlignmentsPerClause < 1 {
		return fmt.Errorf("config: novelty.top_alignments_per_clause must be ≥ 1, got %d",
			c.Novelty.TopAlignmentsPerClause)
	}

	// Corpus
	if c.Corpus.RebuildInterval <= 0 {
		return fmt.Errorf("config: corpus.rebuild_interval must be > 0, got %s", c.Corpus.RebuildInterval)
	}

	// Worker
	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("config: worker.concurrency must be ≥ 1, got %d", c.Worker.Concurrency)
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|text", c.Log.Format)
	}

	return nil
}
