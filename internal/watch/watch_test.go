package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonlabs/docsentry/internal/logging"
)

type recordingUpdater struct {
	mu      sync.Mutex
	batches [][]string
}

func (u *recordingUpdater) UpdatePaths(ctx context.Context, paths []string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.batches = append(u.batches, paths)
	return nil
}

func (u *recordingUpdater) all() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	var out []string
	for _, b := range u.batches {
		out = append(out, b...)
	}
	return out
}

func startWatcher(t *testing.T, root string, target PathUpdater) context.CancelFunc {
	t.Helper()
	w := New(root, target, logging.NewNop())
	w.debounce = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = w.Run(ctx) }()

	// Give the watcher time to register the tree.
	time.Sleep(100 * time.Millisecond)
	return cancel
}

func TestWatcherPicksUpWrites(t *testing.T) {
	root := t.TempDir()
	updater := &recordingUpdater{}
	cancel := startWatcher(t, root, updater)
	defer cancel()

	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main"), 0o644))

	assert.Eventually(t, func() bool {
		for _, p := range updater.all() {
			if p == "main.go" {
				return true
			}
		}
		return false
	}, 3*time.Second, 25*time.Millisecond)
}

func TestWatcherIgnoresUnrecognizedExtensions(t *testing.T) {
	root := t.TempDir()
	updater := &recordingUpdater{}
	cancel := startWatcher(t, root, updater)
	defer cancel()

	require.NoError(t, os.WriteFile(filepath.Join(root, "photo.png"), []byte{0xff, 0xd8}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.md"), []byte("# notes"), 0o644))

	assert.Eventually(t, func() bool {
		for _, p := range updater.all() {
			if p == "notes.md" {
				return true
			}
		}
		return false
	}, 3*time.Second, 25*time.Millisecond)

	assert.NotContains(t, updater.all(), "photo.png")
}

func TestWatcherBatchesRapidWrites(t *testing.T) {
	root := t.TempDir()
	updater := &recordingUpdater{}
	cancel := startWatcher(t, root, updater)
	defer cancel()

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(root, "app.ts"), []byte("export {}"), 0o644))
		time.Sleep(5 * time.Millisecond)
	}

	assert.Eventually(t, func() bool {
		return len(updater.all()) > 0
	}, 3*time.Second, 25*time.Millisecond)

	// Debouncing collapses the burst: one batch, the path once.
	updater.mu.Lock()
	defer updater.mu.Unlock()
	require.Len(t, updater.batches, 1)
	assert.Equal(t, []string{"app.ts"}, updater.batches[0])
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	root := t.TempDir()
	updater := &recordingUpdater{}
	cancel := startWatcher(t, root, updater)
	defer cancel()

	sub := filepath.Join(root, "pkg")
	require.NoError(t, os.Mkdir(sub, 0o755))
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(sub, "lib.go"), []byte("package pkg"), 0o644))

	assert.Eventually(t, func() bool {
		for _, p := range updater.all() {
			if p == "pkg/lib.go" {
				return true
			}
		}
		return false
	}, 3*time.Second, 25*time.Millisecond)
}
