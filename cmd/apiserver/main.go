// apiserver serves the analysis pipeline's HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/derril-tech/ai-patent-explorer/internal/bootstrap"
	"github.com/derril-tech/ai-patent-explorer/internal/config"
	"github.com/derril-tech/ai-patent-explorer/internal/infrastructure/monitoring/logging"
	httpapi "github.com/derril-tech/ai-patent-explorer/internal/interfaces/http"
	"github.com/derril-tech/ai-patent-explorer/internal/interfaces/http/handlers"
)

func main() {
	var (
		configPath = flag.String("config", "", "config file path (default: environment variables only)")
		migrate    = flag.Bool("migrate", true, "apply pending schema migrations on startup")
	)
	flag.Parse()

	if err := run(*configPath, *migrate); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, migrate bool) error {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return err
	}

	log, err := bootstrap.NewLogger(cfg.Log)
	if err != nil {
		return err
	}

	if migrate {
		if err := bootstrap.Migrate(cfg.Database); err != nil {
			return err
		}
		log.Info("schema migrations applied")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()

	pipeline := handlers.NewPipelineHandler(handlers.PipelineHandlerDeps{
		Planner:     app.Planner,
		Retriever:   app.Retriever,
		Aligner:     app.Aligner,
		Scorer:      app.Scorer,
		Alignments:  app.Alignments,
		DefaultTopK: cfg.Retrieval.DefaultTopK,
		MaxTopK:     cfg.Retrieval.MaxTopK,
	})

	health := handlers.NewHealthHandler(map[string]handlers.Pinger{
		"postgres": func(ctx context.Context) error { return app.Pool.Ping(ctx) },
	})

	routerCfg := httpapi.RouterConfigFromServer(cfg.Server)
	routerCfg.Pipeline = pipeline
	routerCfg.Health = health
	routerCfg.Logger = log
	engine := httpapi.NewRouter(routerCfg)

	srv := httpapi.NewServer(cfg.Server, engine, log)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info("shutdown signal received", logging.String("signal", "interrupt"))
		return srv.Shutdown(context.Background())
	}
}
