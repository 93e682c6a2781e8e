package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/halcyonlabs/docsentry/internal/config"
	"github.com/halcyonlabs/docsentry/internal/embeddings"
	"github.com/halcyonlabs/docsentry/internal/generation"
	"github.com/halcyonlabs/docsentry/internal/gh"
	"github.com/halcyonlabs/docsentry/internal/ingest"
	"github.com/halcyonlabs/docsentry/internal/knowledge"
	"github.com/halcyonlabs/docsentry/internal/logging"
	"github.com/halcyonlabs/docsentry/internal/pipeline"
	"github.com/halcyonlabs/docsentry/internal/scheduler"
	"github.com/halcyonlabs/docsentry/internal/server"
	"github.com/halcyonlabs/docsentry/internal/watch"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook server",
	Long: `Start the docsentry daemon: restore or build the knowledge base, then
serve GitHub webhook deliveries, the health endpoint, and Prometheus metrics.

The optional scheduler and filesystem watch run alongside the server when
enabled in configuration.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(&cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, err := embeddings.NewProvider(cfg.Embeddings)
	if err != nil {
		return fmt.Errorf("embeddings: %w", err)
	}
	defer func() { _ = provider.Close() }()

	generator, err := generation.NewOpenAIGenerator(cfg.Generation)
	if err != nil {
		return fmt.Errorf("generation: %w", err)
	}

	store := knowledge.NewStore(provider, logger)
	ingestor := ingest.New(store, cfg.Knowledge.MaxChunkSize, cfg.Repo.ExcludePaths, logger)
	retriever := knowledge.NewRetriever(store, provider, logger)
	docsClient := gh.NewClient(cfg.GitHub)

	p := pipeline.New(store, ingestor, retriever, generator, docsClient, cfg, logger)
	if err := p.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	if cfg.Scheduler.Enabled {
		sched := scheduler.New(cfg.Scheduler.Spec, p, logger)
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("scheduler: %w", err)
		}
	}

	if cfg.Watch.Enabled {
		watcher := watch.New(cfg.Repo.Path, p, logger)
		go func() {
			if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error(ctx, "watcher stopped", zap.Error(err))
			}
		}()
	}

	logger.Info(ctx, "docsentry starting",
		zap.Int("port", cfg.Server.Port),
		zap.Int("chunks", store.Len()),
		zap.Bool("scheduler", cfg.Scheduler.Enabled),
		zap.Bool("watch", cfg.Watch.Enabled))

	srv := server.New(cfg, p, docsClient, store, logger)
	if err := srv.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	logger.Info(ctx, "shutdown complete")
	return nil
}
