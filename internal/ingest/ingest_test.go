package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonlabs/docsentry/internal/knowledge"
	"github.com/halcyonlabs/docsentry/internal/logging"
)

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{float32(len(text)), 1, 0}, nil
}

func (f *fakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.EmbedQuery(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestIngestor(t *testing.T, maxChunkSize int, excludes []string) (*Ingestor, *knowledge.Store) {
	t.Helper()
	store := knowledge.NewStore(&fakeEmbedder{}, logging.NewNop())
	return New(store, maxChunkSize, excludes, logging.NewNop()), store
}

func TestIngestBasicScenario(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.ts", strings.Repeat("x", 50))
	writeFile(t, root, "b.md", strings.Repeat("y", 50))
	writeFile(t, root, "node_modules/c.ts", strings.Repeat("z", 5000))

	ing, store := newTestIngestor(t, 8000, nil)
	stats, err := ing.Ingest(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Files)
	assert.Equal(t, 2, stats.Chunks)
	assert.Equal(t, 0, stats.Errors)
	assert.Equal(t, map[knowledge.ContentType]int{
		knowledge.TypeCode:          1,
		knowledge.TypeDocumentation: 1,
	}, stats.ByType)
	assert.Equal(t, 2, store.Len())
}

func TestIngestSkipsUnrecognizedExtensions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main")
	writeFile(t, root, "binary.png", "not really a png")
	writeFile(t, root, "LICENSE", "license text")

	ing, store := newTestIngestor(t, 8000, nil)
	stats, err := ing.Ingest(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Files)
	assert.Equal(t, 1, store.Len())
}

func TestIngestChunksOversizedFiles(t *testing.T) {
	root := t.TempDir()
	var b strings.Builder
	for i := 0; i < 300; i++ {
		fmt.Fprintf(&b, "line %d of a very long configuration file\n", i)
	}
	writeFile(t, root, "big.yaml", b.String())

	ing, store := newTestIngestor(t, 1000, nil)
	stats, err := ing.Ingest(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Files)
	require.Greater(t, stats.Chunks, 1)
	assert.Equal(t, stats.Chunks, store.Len())

	chunks := store.Chunks()
	for i, c := range chunks {
		assert.Equal(t, fmt.Sprintf("big.yaml (part %d/%d)", i+1, len(chunks)), c.Metadata.Source)
		assert.Equal(t, knowledge.TypeConfiguration, c.Metadata.Type)
	}
}

func TestIngestPathSubstringExclusions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/app.ts", "const a = 1")
	writeFile(t, root, "src/generated/bindings.ts", "const b = 2")
	writeFile(t, root, "src/app.test.ts", "const c = 3")

	ing, store := newTestIngestor(t, 8000, []string{"generated/", ".test."})
	stats, err := ing.Ingest(context.Background(), root)
	require.NoError(t, err)

	// Exclusions are silent: not processed, not errors.
	assert.Equal(t, 1, stats.Files)
	assert.Equal(t, 0, stats.Errors)
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, "src/app.ts", store.Chunks()[0].Metadata.Source)
}

func TestIngestContinuesPastEmbeddingFailures(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a")
	writeFile(t, root, "b.go", "package b")

	emb := &fakeEmbedder{}
	store := knowledge.NewStore(emb, logging.NewNop())
	ing := New(store, 8000, nil, logging.NewNop())

	// Fail every embedding call; both files become counted errors.
	emb.err = errors.New("embedding service down")
	stats, err := ing.Ingest(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Files)
	assert.Equal(t, 2, stats.Errors)
	assert.Equal(t, 0, store.Len())
}

func TestIngestSkipsBinaryContent(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "junk.go"), []byte{0xff, 0xfe, 0x00, 0x01}, 0o644))

	ing, store := newTestIngestor(t, 8000, nil)
	stats, err := ing.Ingest(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Files)
	assert.Equal(t, 0, stats.Errors)
	assert.Equal(t, 0, store.Len())
}

func TestIngestInvalidRoot(t *testing.T) {
	ing, _ := newTestIngestor(t, 8000, nil)

	_, err := ing.Ingest(context.Background(), "")
	assert.Error(t, err)

	_, err = ing.Ingest(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestUpdateAppendsChangedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/app.ts", "const a = 1")

	ing, store := newTestIngestor(t, 8000, nil)
	updated, err := ing.Update(context.Background(), root, []string{"src/app.ts"})
	require.NoError(t, err)
	assert.True(t, updated)
	assert.Equal(t, 1, store.Len())
}

func TestUpdateSkipsDeletedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "kept.go", "package kept")

	ing, store := newTestIngestor(t, 8000, nil)
	_, err := ing.Update(context.Background(), root, []string{"kept.go"})
	require.NoError(t, err)
	require.Equal(t, 1, store.Len())

	// A deleted path neither errors nor adds chunks; prior chunks remain.
	updated, err := ing.Update(context.Background(), root, []string{"deleted.go"})
	require.NoError(t, err)
	assert.False(t, updated)
	assert.Equal(t, 1, store.Len())
}

func TestUpdateAppliesExclusions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "gen/types.ts", "export type A = {}")

	ing, store := newTestIngestor(t, 8000, []string{"gen/"})
	updated, err := ing.Update(context.Background(), root, []string{"gen/types.ts"})
	require.NoError(t, err)
	assert.False(t, updated)
	assert.Equal(t, 0, store.Len())
}

func TestUpdateReingestionAppends(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app.go", "package app")

	ing, store := newTestIngestor(t, 8000, nil)
	for i := 0; i < 2; i++ {
		updated, err := ing.Update(context.Background(), root, []string{"app.go"})
		require.NoError(t, err)
		assert.True(t, updated)
	}
	// Re-ingestion appends; stale chunks are deliberately retained.
	assert.Equal(t, 2, store.Len())
}
