// Package bootstrap wires configuration into the infrastructure and
// application layers.  Both binaries (apiserver, worker) share this
// assembly so their dependency graphs cannot drift apart.
package bootstrap

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	prom "github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/derril-tech/ai-patent-explorer/internal/application/align"
	"github.com/derril-tech/ai-patent-explorer/internal/application/novelty"
	"github.com/derril-tech/ai-patent-explorer/internal/application/queryplan"
	"github.com/derril-tech/ai-patent-explorer/internal/application/retrieval"
	"github.com/derril-tech/ai-patent-explorer/internal/config"
	"github.com/derril-tech/ai-patent-explorer/internal/infrastructure/database/postgres"
	"github.com/derril-tech/ai-patent-explorer/internal/infrastructure/database/postgres/repositories"
	"github.com/derril-tech/ai-patent-explorer/internal/infrastructure/database/redis"
	"github.com/derril-tech/ai-patent-explorer/internal/infrastructure/embedding/openai"
	"github.com/derril-tech/ai-patent-explorer/internal/infrastructure/monitoring/logging"
	"github.com/derril-tech/ai-patent-explorer/internal/infrastructure/monitoring/prometheus"
	"github.com/derril-tech/ai-patent-explorer/internal/infrastructure/search/bm25"
	"github.com/derril-tech/ai-patent-explorer/internal/infrastructure/search/milvus"
	"github.com/derril-tech/ai-patent-explorer/internal/infrastructure/search/opensearch"
)

// NewLogger builds the process logger from the pipeline config.
func NewLogger(cfg config.LogConfig) (logging.Logger, error) {
	format := cfg.Format
	if format == "text" {
		format = "console"
	}
	lc := logging.LogConfig{
		Level:  cfg.Level,
		Format: format,
	}
	if cfg.Output != "" {
		lc.OutputPaths = []string{cfg.Output}
	}
	return logging.NewLogger(lc)
}

// App holds every wired component plus the resources that need closing.
type App struct {
	Config  *config.Config
	Logger  logging.Logger
	Metrics *prometheus.PipelineMetrics

	Pool        *pgxpool.Pool
	Redis       *goredis.Client
	MilvusConn  *milvus.Client
	Corpus      *repositories.CorpusRepository
	Alignments  *repositories.AlignmentRepository
	Scores      *repositories.NoveltyRepository
	Snapshots   *bm25.SnapshotManager
	Provider    *openai.Provider

	Planner   queryplan.Service
	Retriever retrieval.Service
	Aligner   align.Service
	Scorer    novelty.Service
}

// Build assembles the full pipeline.  It fails fast on unreachable
// infrastructure so the process does not serve half-wired.
func Build(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	app := &App{
		Config:  cfg,
		Logger:  log,
		Metrics: prometheus.NewPipelineMetrics(prom.DefaultRegisterer),
	}

	pool, err := postgres.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	app.Pool = pool

	app.Corpus = repositories.NewCorpusRepository(pool, log)
	app.Alignments = repositories.NewAlignmentRepository(pool, log)
	app.Scores = repositories.NewNoveltyRepository(pool, log)

	// The shared embedding cache is optional: without Redis the provider
	// still has its in-process tier.
	var providerOpts []openai.Option
	if cfg.Redis.Addr != "" {
		rdb, err := redis.NewClient(cfg.Redis, log)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.Redis = rdb
		providerOpts = append(providerOpts, openai.WithSharedCache(redis.NewEmbedCache(rdb, cfg.Redis, log)))
	}

	provider, err := openai.NewProvider(cfg.Provider, log, providerOpts...)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Provider = provider

	lexical, err := app.buildLexical(ctx, cfg, log)
	if err != nil {
		app.Close()
		return nil, err
	}

	milvusConn, err := milvus.NewClient(ctx, cfg.Milvus, log)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.MilvusConn = milvusConn
	vector := milvus.NewSearcher(milvusConn, app.Corpus, log)

	var reranker retrieval.Reranker
	if cfg.Retrieval.EnableRerank {
		reranker = openai.NewReranker(provider, log)
	}

	app.Planner = queryplan.NewService(log, app.Metrics)
	app.Retriever = retrieval.NewService(retrieval.Deps{
		Lexical:     lexical,
		Vector:      vector,
		Embedder:    provider,
		Reranker:    reranker,
		Logger:      log,
		Metrics:     app.Metrics,
		DefaultTopK: cfg.Retrieval.DefaultTopK,
		MaxTopK:     cfg.Retrieval.MaxTopK,
	})
	app.Aligner = align.NewService(align.Deps{
		Provider: provider,
		Corpus:   app.Corpus,
		Store:    app.Alignments,
		Logger:   log,
		Metrics:  app.Metrics,
	})
	app.Scorer = novelty.NewService(novelty.Deps{
		Corpus:                 app.Corpus,
		Alignments:             app.Alignments,
		Store:                  app.Scores,
		Embedder:               provider,
		Logger:                 log,
		Metrics:                app.Metrics,
		MaxPairwiseComparisons: cfg.Novelty.MaxPairwiseComparisons,
		TopAlignmentsPerClause: cfg.Novelty.TopAlignmentsPerClause,
	})

	return app, nil
}

// buildLexical selects the keyword backend: the in-process BM25 snapshot
// (default) or an external OpenSearch cluster.
func (a *App) buildLexical(ctx context.Context, cfg *config.Config, log logging.Logger) (retrieval.LexicalSearcher, error) {
	if cfg.Retrieval.LexicalBackend == "opensearch" {
		osClient, err := opensearch.NewClient(ctx, cfg.OpenSearch, log)
		if err != nil {
			return nil, err
		}
		return opensearch.NewSearcher(osClient, cfg.OpenSearch.IndexPrefix, log), nil
	}

	interval := cfg.Corpus.RebuildInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	manager := bm25.NewSnapshotManager(a.Corpus, interval, log, a.Metrics)
	if err := manager.Start(ctx); err != nil {
		return nil, err
	}
	a.Snapshots = manager
	return bm25.NewSearcher(manager), nil
}

// Migrate applies pending schema migrations.
func Migrate(cfg config.DatabaseConfig) error {
	path := cfg.MigrationPath
	if path == "" {
		path = "migrations"
	}
	return postgres.RunMigrations(postgres.MigrateURL(cfg), path)
}

// Close releases every held resource in reverse dependency order.
func (a *App) Close() {
	if a.Snapshots != nil {
		a.Snapshots.Close()
	}
	if a.MilvusConn != nil {
		a.MilvusConn.Close()
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
}
