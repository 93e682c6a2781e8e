package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/halcyonlabs/docsentry/internal/config"
	"github.com/halcyonlabs/docsentry/internal/embeddings"
	"github.com/halcyonlabs/docsentry/internal/knowledge"
	"github.com/halcyonlabs/docsentry/internal/logging"
)

var (
	queryTopK int
	queryType string
)

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Query the persisted knowledge base",
	Long: `Load the knowledge base snapshot and print the chunks most relevant to
the query text.

Examples:

  docsentry query "webhook signature validation"
  docsentry query --type documentation "getting started"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVar(&queryTopK, "top-k", 0, "number of results (default from config)")
	queryCmd.Flags().StringVar(&queryType, "type", "", "filter by content type (code, documentation, configuration, other)")
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := logging.NewNop()

	provider, err := embeddings.NewProvider(cfg.Embeddings)
	if err != nil {
		return fmt.Errorf("embeddings: %w", err)
	}
	defer func() { _ = provider.Close() }()

	store := knowledge.NewStore(provider, logger)
	if err := store.Restore(cfg.Knowledge.SnapshotPath); err != nil {
		if errors.Is(err, knowledge.ErrSnapshotNotFound) {
			return fmt.Errorf("no snapshot at %s; run 'docsentry index' first", cfg.Knowledge.SnapshotPath)
		}
		return fmt.Errorf("restore: %w", err)
	}

	topK := queryTopK
	if topK <= 0 {
		topK = cfg.Knowledge.TopK
	}

	retriever := knowledge.NewRetriever(store, provider, logger)
	result, err := retriever.Retrieve(cmd.Context(), strings.Join(args, " "), topK, knowledge.ContentType(queryType))
	if err != nil {
		return err
	}

	fmt.Println(result)
	return nil
}
