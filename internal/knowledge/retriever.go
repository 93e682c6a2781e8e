package knowledge

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/halcyonlabs/docsentry/internal/logging"
)

// NoKnowledgeBase is the sentinel returned when retrieval has nothing to
// draw on. Callers must treat it as "no context", not as an error.
const NoKnowledgeBase = "no knowledge base available"

// Retriever answers free-text context queries against a Store.
type Retriever struct {
	store    *Store
	embedder Embedder
	logger   *logging.Logger
}

// NewRetriever creates a retriever over the given store.
func NewRetriever(store *Store, embedder Embedder, logger *logging.Logger) *Retriever {
	return &Retriever{
		store:    store,
		embedder: embedder,
		logger:   logger.Named("retriever"),
	}
}

// Retrieve embeds query and returns the topK most similar chunks of the
// given content type, formatted as "[source] content" lines.
//
// The type filter is matched against the type re-derived from each chunk's
// source path at query time, not the stored metadata, so retrieval stays
// robust to stale metadata in old snapshots.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int, typeFilter ContentType) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", ErrEmptyQuery
	}
	if r.store.Len() == 0 {
		return NoKnowledgeBase, nil
	}

	queryEmbedding, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return "", fmt.Errorf("embedding query: %w", err)
	}

	results := r.store.SearchFiltered(queryEmbedding, topK, func(c Chunk) bool {
		return typeFilter == "" || ClassifyPath(sourcePath(c.Metadata.Source)) == typeFilter
	})

	r.logger.Debug(ctx, "context retrieved",
		zap.Int("results", len(results)),
		zap.String("type_filter", string(typeFilter)))

	if len(results) == 0 {
		return NoKnowledgeBase, nil
	}

	var b strings.Builder
	for i, c := range results {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "[%s] %s", c.Metadata.Source, c.Content)
	}
	return b.String(), nil
}
