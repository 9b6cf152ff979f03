// worker consumes pipeline requests from Kafka and publishes replies.
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
	"github.com/derril-tech/ai-patent-explorer/internal/infrastructure/messaging/kafka"
	"github.com/derril-tech/ai-patent-explorer/internal/infrastructure/monitoring/logging"
)

func main() {
	var (
		configPath = flag.String("config", "", "config file path (default: environment variables only)")
		migrate    = flag.Bool("migrate", false, "apply pending schema migrations on startup")
	)
	flag.Parse()

	if err := run(*configPath, *migrate); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
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

	producer, err := kafka.NewProducer(cfg.Kafka, log)
	if err != nil {
		return err
	}
	defer producer.Close()

	consumer, err := kafka.NewConsumer(cfg.Kafka, cfg.Worker, producer, log)
	if err != nil {
		return err
	}

	kafka.RegisterPipeline(consumer, kafka.PipelineServices{
		Planner:     app.Planner,
		Retriever:   app.Retriever,
		Aligner:     app.Aligner,
		Scorer:      app.Scorer,
		DefaultTopK: cfg.Retrieval.DefaultTopK,
		MaxTopK:     cfg.Retrieval.MaxTopK,
	})

	if err := consumer.Start(ctx); err != nil {
		return err
	}
	log.Info("worker consuming pipeline requests",
		logging.String("group", cfg.Kafka.GroupID),
		logging.Any("brokers", cfg.Kafka.Brokers))

	<-ctx.Done()
	log.Info("shutdown signal received")
	return consumer.Close()
}
