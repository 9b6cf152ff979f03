// Package http assembles the gin route tree and HTTP server for the
// analysis pipeline API.
package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/derril-tech/ai-patent-explorer/internal/config"
	"github.com/derril-tech/ai-patent-explorer/internal/infrastructure/monitoring/logging"
	"github.com/derril-tech/ai-patent-explorer/internal/interfaces/http/handlers"
	"github.com/derril-tech/ai-patent-explorer/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handlers and middleware dependencies for the
// complete route tree.
type RouterConfig struct {
	Pipeline *handlers.PipelineHandler
	Health   *handlers.HealthHandler
	Logger   logging.Logger

	// Mode is the gin mode: "debug", "release", or "test".
	Mode string
	// EnableMetrics mounts /metrics backed by the default Prometheus
	// registry.
	EnableMetrics bool
	// AllowedOrigins restricts CORS; empty allows any origin.
	AllowedOrigins []string
}

// NewRouter builds the gin engine with global middleware, health probes,
// the metrics endpoint, and the versioned pipeline API.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Mode == "" {
		cfg.Mode = gin.ReleaseMode
	}
	gin.SetMode(cfg.Mode)

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(middleware.CORS(cfg.AllowedOrigins...))

	if cfg.Health != nil {
		r.GET("/healthz", cfg.Health.Liveness)
		r.GET("/readyz", cfg.Health.Readiness)
	}
	if cfg.EnableMetrics {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	if cfg.Pipeline != nil {
		v1 := r.Group("/api/v1")
		{
			v1.POST("/queries/plan", cfg.Pipeline.Plan)
			v1.POST("/search", cfg.Pipeline.Search)
			v1.POST("/alignments", cfg.Pipeline.Align)
			v1.GET("/alignments/:patentID/:claimNumber", cfg.Pipeline.GetAlignments)
			v1.POST("/novelty", cfg.Pipeline.Novelty)
			v1.GET("/novelty/:patentID/:claimNumber", cfg.Pipeline.GetNovelty)
		}
	}

	return r
}

// RouterConfigFromServer derives gin-level settings from the server config.
func RouterConfigFromServer(cfg config.ServerConfig) RouterConfig {
	mode := cfg.Mode
	switch mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
	default:
		mode = gin.ReleaseMode
	}
	return RouterConfig{Mode: mode, EnableMetrics: true}
}
