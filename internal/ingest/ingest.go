// Package ingest feeds repository files into the knowledge base, both as a
// full tree scan and as per-event incremental updates.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/halcyonlabs/docsentry/internal/chunker"
	"github.com/halcyonlabs/docsentry/internal/knowledge"
	"github.com/halcyonlabs/docsentry/internal/logging"
	"github.com/halcyonlabs/docsentry/internal/metrics"
)

// defaultSkipDirs are directories that are always skipped during ingestion.
// These contain generated code, dependencies, or version control data.
var defaultSkipDirs = map[string]bool{
	".git":         true,
	".svn":         true,
	".hg":          true,
	"node_modules": true,
	"vendor":       true,
	".venv":        true,
	"venv":         true,
	"__pycache__":  true,
	".idea":        true,
	".vscode":      true,
	".cache":       true,
	"dist":         true,
	"build":        true,
	".next":        true,
	"target":       true,
}

// SkipDir reports whether a directory name is always excluded from scanning.
// Shared with the filesystem watcher so both walk the same tree.
func SkipDir(name string) bool {
	return defaultSkipDirs[name]
}

// Stats aggregates the outcome of an ingestion pass.
type Stats struct {
	// Files is the number of files successfully ingested.
	Files int

	// Chunks is the number of chunks appended to the store.
	Chunks int

	// Errors counts files skipped due to read or embedding failures.
	Errors int

	// ByType counts ingested files per content type.
	ByType map[knowledge.ContentType]int

	// TotalSize is the total byte size of ingested files.
	TotalSize int64
}

// Ingestor walks a repository working tree and feeds files into a Store.
type Ingestor struct {
	store        *knowledge.Store
	maxChunkSize int

	// excludePaths are path substrings that silently exclude files,
	// applied before extension filtering.
	excludePaths []string

	logger *logging.Logger
}

// New creates an Ingestor writing into store.
func New(store *knowledge.Store, maxChunkSize int, excludePaths []string, logger *logging.Logger) *Ingestor {
	return &Ingestor{
		store:        store,
		maxChunkSize: maxChunkSize,
		excludePaths: excludePaths,
		logger:       logger.Named("ingest"),
	}
}

// Ingest walks the tree rooted at root depth-first and appends every
// recognized file to the store, chunking files larger than the configured
// threshold. A single file's read or embedding failure is counted and
// skipped; it never aborts the walk.
//
// Ingest does not persist the store; that is the caller's responsibility.
func (ing *Ingestor) Ingest(ctx context.Context, root string) (*Stats, error) {
	cleanRoot, err := validateRoot(root)
	if err != nil {
		return nil, fmt.Errorf("invalid root: %w", err)
	}

	stats := &Stats{ByType: make(map[knowledge.ContentType]int)}

	err = filepath.Walk(cleanRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if defaultSkipDirs[filepath.Base(path)] {
				return filepath.SkipDir
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		relPath, err := filepath.Rel(cleanRoot, path)
		if err != nil {
			return fmt.Errorf("computing relative path: %w", err)
		}
		relPath = filepath.ToSlash(relPath)

		if ing.excluded(relPath) || !knowledge.RecognizedExtension(relPath) {
			return nil
		}

		if err := ing.ingestFile(ctx, path, relPath, stats); err != nil {
			stats.Errors++
			metrics.IngestErrors.Inc()
			ing.logger.Warn(ctx, "skipping file",
				zap.String("path", relPath),
				zap.Error(err))
		}
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("walking file tree: %w", err)
	}

	ing.logger.Info(ctx, "repository ingested",
		zap.String("root", cleanRoot),
		zap.Int("files", stats.Files),
		zap.Int("chunks", stats.Chunks),
		zap.Int("errors", stats.Errors),
		zap.Int64("total_size", stats.TotalSize))
	return stats, nil
}

// Update re-ingests only the given repository-relative paths.
//
// Files that no longer exist on disk are skipped; their previously stored
// chunks are left in place. Returns true iff at least one chunk was
// appended, signaling the caller should persist.
func (ing *Ingestor) Update(ctx context.Context, root string, changedPaths []string) (bool, error) {
	cleanRoot, err := validateRoot(root)
	if err != nil {
		return false, fmt.Errorf("invalid root: %w", err)
	}

	stats := &Stats{ByType: make(map[knowledge.ContentType]int)}

	for _, rel := range changedPaths {
		rel = filepath.ToSlash(rel)
		if ing.excluded(rel) || !knowledge.RecognizedExtension(rel) {
			continue
		}

		abs := filepath.Join(cleanRoot, filepath.FromSlash(rel))
		if _, err := os.Stat(abs); err != nil {
			// Deleted or unreadable file: nothing new to index.
			ing.logger.Debug(ctx, "changed file not on disk, skipping",
				zap.String("path", rel))
			continue
		}

		if err := ing.ingestFile(ctx, abs, rel, stats); err != nil {
			stats.Errors++
			metrics.IngestErrors.Inc()
			ing.logger.Warn(ctx, "skipping changed file",
				zap.String("path", rel),
				zap.Error(err))
		}
	}

	ing.logger.Info(ctx, "incremental update complete",
		zap.Int("changed", len(changedPaths)),
		zap.Int("files", stats.Files),
		zap.Int("chunks", stats.Chunks),
		zap.Int("errors", stats.Errors))
	return stats.Chunks > 0, nil
}

// ingestFile reads, classifies, chunks if oversized, and appends one file.
func (ing *Ingestor) ingestFile(ctx context.Context, absPath, relPath string, stats *Stats) error {
	content, err := os.ReadFile(absPath)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}

	// Binary files are not embeddable text.
	if !utf8.Valid(content) {
		return nil
	}

	text := string(content)
	contentType := knowledge.ClassifyPath(relPath)

	if len(text) > ing.maxChunkSize {
		parts := chunker.Split(text, ing.maxChunkSize)
		for i, part := range parts {
			meta := knowledge.ChunkMetadata{
				Source: fmt.Sprintf("%s (part %d/%d)", relPath, i+1, len(parts)),
				Type:   contentType,
			}
			if err := ing.store.Append(ctx, part, meta); err != nil {
				return err
			}
			stats.Chunks++
		}
	} else {
		meta := knowledge.ChunkMetadata{Source: relPath, Type: contentType}
		if err := ing.store.Append(ctx, text, meta); err != nil {
			return err
		}
		stats.Chunks++
	}

	stats.Files++
	stats.ByType[contentType]++
	stats.TotalSize += int64(len(content))
	return nil
}

// excluded reports whether relPath matches any configured path-substring
// exclusion. Matches are silently skipped: counted neither as processed
// nor as error.
func (ing *Ingestor) excluded(relPath string) bool {
	for _, sub := range ing.excludePaths {
		if sub != "" && strings.Contains(relPath, sub) {
			return true
		}
	}
	return false
}

// validateRoot validates and cleans the repository root path.
func validateRoot(root string) (string, error) {
	if root == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	cleanRoot := filepath.Clean(root)
	info, err := os.Stat(cleanRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("path does not exist: %s", cleanRoot)
		}
		return "", fmt.Errorf("stat path: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("path must be a directory: %s", cleanRoot)
	}
	return cleanRoot, nil
}
