package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/halcyonlabs/docsentry/internal/config"
	"github.com/halcyonlabs/docsentry/internal/embeddings"
	"github.com/halcyonlabs/docsentry/internal/ingest"
	"github.com/halcyonlabs/docsentry/internal/knowledge"
	"github.com/halcyonlabs/docsentry/internal/logging"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the knowledge base snapshot once and exit",
	Long: `Walk the configured repository, ingest every recognized file, and write
the knowledge base snapshot. Useful for seeding the snapshot before the
first serve, or from CI.`,
	RunE: runIndex,
}

func runIndex(cmd *cobra.Command, args []string) error {
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

	store := knowledge.NewStore(provider, logger)
	ingestor := ingest.New(store, cfg.Knowledge.MaxChunkSize, cfg.Repo.ExcludePaths, logger)

	stats, err := ingestor.Ingest(ctx, cfg.Repo.Path)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	if err := store.Persist(cfg.Knowledge.SnapshotPath); err != nil {
		return fmt.Errorf("persist: %w", err)
	}

	fmt.Printf("Indexed %d files (%d chunks, %d errors) into %s\n",
		stats.Files, stats.Chunks, stats.Errors, cfg.Knowledge.SnapshotPath)
	for contentType, count := range stats.ByType {
		fmt.Printf("  %-14s %d\n", contentType, count)
	}
	return nil
}
