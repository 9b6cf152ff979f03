package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerPort = 8080
	DefaultServerMode = "debug"

	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBName     = "patents"
	DefaultDBUser     = "patents"
	DefaultDBSSLMode  = "disable"
	DefaultDBMaxConns = 25

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisDB        = 0
	DefaultRedisTTL       = 24 * time.Hour
	DefaultRedisKeyPrefix = "patent:"

	DefaultKafkaBroker      = "localhost:9092"
	DefaultKafkaGroupID     = "patent-pipeline"
	DefaultKafkaStartOffset = "earliest"

	DefaultMilvusAddr         = "localhost:19530"
	DefaultMilvusEmbeddingDim = 1536
	DefaultMilvusMetricType   = "COSINE"
	DefaultMilvusCollection   = "patent_claims"

	DefaultEmbeddingModel  = "text-embedding-3-small"
	DefaultProviderTimeout = 30 * time.Second
	DefaultProviderCacheTTL = 12 * time.Hour

	DefaultTopK           = 20
	DefaultMaxTopK        = 100
	DefaultBM25K1         = 1.5
	DefaultBM25B          = 0.75
	DefaultLexicalBackend = "memory"

	DefaultMaxPairwiseComparisons = 200
	DefaultTopAlignmentsPerClause = 3

	DefaultCorpusRebuildInterval = 5 * time.Minute
	DefaultCorpusMinTokenLength  = 3

	DefaultWorkerConcurrency  = 8
	DefaultWorkerRetryBackoff = 2 * time.Second
	DefaultWorkerShutdownGrace = 15 * time.Second

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// ApplyDefaults fills every zero-value field in cfg with the platform default.
// Fields that have already been set by the caller (non-zero values) are left
// unchanged so that explicit configuration always wins.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// Server
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	// Database
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.User == "" {
		cfg.Database.User = DefaultDBUser
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = DefaultDBSSLMode
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.MigrationPath == "" {
		cfg.Database.MigrationPath = "file://migrations"
	}

	// Redis
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.DefaultTTL == 0 {
		cfg.Redis.DefaultTTL = DefaultRedisTTL
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}

	// Kafka
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.StartOffset == "" {
		cfg.Kafka.StartOffset = DefaultKafkaStartOffset
	}
	if cfg.Kafka.CommitInterval == 0 {
		cfg.Kafka.CommitInterval = time.Second
	}
	if cfg.Kafka.MaxBytes == 0 {
		cfg.Kafka.MaxBytes = 10 << 20
	}

	// Milvus
	if cfg.Milvus.Addr == "" {
		cfg.Milvus.Addr = DefaultMilvusAddr
	}
	if cfg.Milvus.EmbeddingDim == 0 {
		cfg.Milvus.EmbeddingDim = DefaultMilvusEmbeddingDim
	}
	if cfg.Milvus.MetricType == "" {
		cfg.Milvus.MetricType = DefaultMilvusMetricType
	}
	if cfg.Milvus.CollectionPrefix == "" {
		cfg.Milvus.CollectionPrefix = DefaultMilvusCollection
	}

	// Provider
	if cfg.Provider.EmbeddingModel == "" {
		cfg.Provider.EmbeddingModel = DefaultEmbeddingModel
	}
	if cfg.Provider.RequestTimeout == 0 {
		cfg.Provider.RequestTimeout = DefaultProviderTimeout
	}
	if cfg.Provider.CacheTTL == 0 {
		cfg.Provider.CacheTTL = DefaultProviderCacheTTL
	}

	// Retrieval
	if cfg.Retrieval.DefaultTopK == 0 {
		cfg.Retrieval.DefaultTopK = DefaultTopK
	}
	if cfg.Retrieval.MaxTopK == 0 {
		cfg.Retrieval.MaxTopK = DefaultMaxTopK
	}
	if cfg.Retrieval.BM25K1 == 0 {
		cfg.Retrieval.BM25K1 = DefaultBM25K1
	}
	if cfg.Retrieval.BM25B == 0 {
		cfg.Retrieval.BM25B = DefaultBM25B
	}
	if cfg.Retrieval.LexicalBackend == "" {
		cfg.Retrieval.LexicalBackend = DefaultLexicalBackend
	}

	// Novelty
	if cfg.Novelty.MaxPairwiseComparisons == 0 {
		cfg.Novelty.MaxPairwiseComparisons = DefaultMaxPairwiseComparisons
	}
	if cfg.Novelty.TopAlignmentsPerClause == 0 {
		cfg.Novelty.TopAlignmentsPerClause = DefaultTopAlignmentsPerClause
	}

	// Corpus
	if cfg.Corpus.RebuildInterval == 0 {
		cfg.Corpus.RebuildInterval = DefaultCorpusRebuildInterval
	}
	if cfg.Corpus.MinTokenLength == 0 {
		cfg.Corpus.MinTokenLength = DefaultCorpusMinTokenLength
	}

	// Worker
	if cfg.Worker.Concurrency == 0 {
		cfg.Worker.Concurrency = DefaultWorkerConcurrency
	}
	if cfg.Worker.RetryBackoff == 0 {
		cfg.Worker.RetryBackoff = DefaultWorkerRetryBackoff
	}
	if cfg.Worker.ShutdownGrace == 0 {
		cfg.Worker.ShutdownGrace = DefaultWorkerShutdownGrace
	}

	// Log
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
}
