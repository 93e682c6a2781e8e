// Package watch feeds local filesystem changes into the knowledge base.
//
// It is the local-development counterpart of the webhook path: edits in the
// monitored working tree update the index directly, with no GitHub delivery
// and no documentation drafting.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/halcyonlabs/docsentry/internal/ingest"
	"github.com/halcyonlabs/docsentry/internal/knowledge"
	"github.com/halcyonlabs/docsentry/internal/logging"
)

// PathUpdater applies a batch of changed repository-relative paths.
// Implemented by pipeline.Pipeline.
type PathUpdater interface {
	UpdatePaths(ctx context.Context, paths []string) error
}

// Watcher watches a repository working tree and batches change events into
// knowledge base updates.
type Watcher struct {
	root     string
	target   PathUpdater
	debounce time.Duration
	logger   *logging.Logger
}

// New creates a watcher over the tree rooted at root.
func New(root string, target PathUpdater, logger *logging.Logger) *Watcher {
	return &Watcher{
		root:     root,
		target:   target,
		debounce: 500 * time.Millisecond,
		logger:   logger.Named("watch"),
	}
}

// Run watches until ctx is cancelled. Events are debounced: rapid bursts of
// writes (editor saves, formatters) collapse into one update batch.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := w.addRecursive(fsw, w.root); err != nil {
		return err
	}
	w.logger.Info(ctx, "watching repository", zap.String("root", w.root))

	pending := make(map[string]bool)
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, fsw, event, pending)
			if len(pending) > 0 {
				if timer == nil {
					timer = time.NewTimer(w.debounce)
				} else {
					timer.Reset(w.debounce)
				}
				fire = timer.C
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn(ctx, "watch error", zap.Error(err))

		case <-fire:
			fire = nil
			batch := make([]string, 0, len(pending))
			for p := range pending {
				batch = append(batch, p)
			}
			pending = make(map[string]bool)

			if err := w.target.UpdatePaths(ctx, batch); err != nil {
				w.logger.Error(ctx, "update failed", zap.Error(err))
			} else {
				w.logger.Info(ctx, "index updated", zap.Int("paths", len(batch)))
			}
		}
	}
}

// handleEvent records a relevant file change and tracks newly created
// directories so the watch stays recursive.
func (w *Watcher) handleEvent(ctx context.Context, fsw *fsnotify.Watcher, event fsnotify.Event, pending map[string]bool) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}

	if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
		if event.Op&fsnotify.Create != 0 && !ingest.SkipDir(filepath.Base(event.Name)) {
			if err := w.addRecursive(fsw, event.Name); err != nil {
				w.logger.Warn(ctx, "watching new directory failed",
					zap.String("dir", event.Name), zap.Error(err))
			}
		}
		return
	}

	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)
	if knowledge.RecognizedExtension(rel) {
		pending[rel] = true
	}
}

// addRecursive registers dir and all its non-skipped subdirectories.
func (w *Watcher) addRecursive(fsw *fsnotify.Watcher, dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if ingest.SkipDir(filepath.Base(path)) && path != dir {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
}
