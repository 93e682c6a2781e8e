package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/halcyonlabs/docsentry/internal/logging"
	"github.com/halcyonlabs/docsentry/internal/metrics"
)

// Store is the in-memory knowledge base: an ordered sequence of chunks.
//
// Insertion order reflects ingestion order and is preserved by persistence,
// but carries no semantic meaning. All mutation (Append, Persist, Restore)
// is serialized by an internal mutex so concurrent webhook deliveries
// cannot lose updates or corrupt snapshots.
type Store struct {
	mu       sync.Mutex
	chunks   []Chunk
	embedder Embedder
	logger   *logging.Logger
}

// NewStore creates an empty knowledge base backed by the given embedder.
func NewStore(embedder Embedder, logger *logging.Logger) *Store {
	return &Store{
		embedder: embedder,
		logger:   logger.Named("knowledge"),
	}
}

// Append embeds content and appends a new chunk record.
//
// Duplicate content is appended, never merged. The embedding call may block
// on remote I/O; its failure propagates without retry.
func (s *Store) Append(ctx context.Context, content string, meta ChunkMetadata) error {
	embedding, err := s.embedder.EmbedQuery(ctx, content)
	if err != nil {
		return fmt.Errorf("embedding chunk from %s: %w", meta.Source, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.chunks = append(s.chunks, Chunk{
		Content:   content,
		Embedding: embedding,
		Metadata:  meta,
	})
	metrics.ChunksStored.Inc()
	return nil
}

// Search returns up to topK stored chunks ranked by descending cosine
// similarity to queryEmbedding. When typeFilter is non-empty, only chunks
// of that content type (per stored metadata) are considered. Ties keep
// insertion order (stable sort). An empty store, or one emptied by the
// filter, yields no results.
func (s *Store) Search(queryEmbedding []float32, topK int, typeFilter ContentType) []Chunk {
	return s.SearchFiltered(queryEmbedding, topK, func(c Chunk) bool {
		return typeFilter == "" || c.Metadata.Type == typeFilter
	})
}

// SearchFiltered ranks chunks accepted by match, descending by cosine
// similarity to queryEmbedding, capped at topK.
func (s *Store) SearchFiltered(queryEmbedding []float32, topK int, match func(Chunk) bool) []Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()

	type scored struct {
		chunk Chunk
		score float64
	}

	candidates := make([]scored, 0, len(s.chunks))
	for _, c := range s.chunks {
		if match != nil && !match(c) {
			continue
		}
		candidates = append(candidates, scored{chunk: c, score: CosineSimilarity(queryEmbedding, c.Embedding)})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if topK > len(candidates) {
		topK = len(candidates)
	}
	if topK < 0 {
		topK = 0
	}

	results := make([]Chunk, topK)
	for i := 0; i < topK; i++ {
		results[i] = candidates[i].chunk
	}
	metrics.Searches.Inc()
	return results
}

// Len returns the number of stored chunks.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chunks)
}

// Chunks returns a copy of the stored chunk sequence.
func (s *Store) Chunks() []Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Chunk, len(s.chunks))
	copy(out, s.chunks)
	return out
}

// Reset discards all stored chunks. Used before a full re-ingestion so the
// rebuilt store does not accumulate stale chunks across runs.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = nil
}

// Persist serializes the full chunk sequence to path, replacing any prior
// snapshot atomically (temp file + rename), so a concurrent Restore never
// observes a partial write.
//
// An empty store is a guarded no-op with a warning: it must never destroy
// a previously larger valid snapshot by writing nothing.
func (s *Store) Persist(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.chunks) == 0 {
		s.logger.Warn(context.Background(), "refusing to persist empty knowledge base",
			zap.String("path", path))
		return nil
	}

	data, err := json.Marshal(s.chunks)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing snapshot: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing snapshot: %w", err)
	}

	s.logger.Info(context.Background(), "knowledge base persisted",
		zap.String("path", path),
		zap.Int("chunks", len(s.chunks)))
	return nil
}

// Restore replaces the in-memory store with the snapshot at path.
//
// Returns ErrSnapshotNotFound when path does not exist; a parse failure is
// fatal for this restore attempt and callers fall back to a full ingest.
func (s *Store) Restore(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrSnapshotNotFound, path)
		}
		return fmt.Errorf("reading snapshot: %w", err)
	}

	var chunks []Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return fmt.Errorf("decoding snapshot %s: %w", path, err)
	}

	s.mu.Lock()
	s.chunks = chunks
	s.mu.Unlock()

	s.logger.Info(context.Background(), "knowledge base restored",
		zap.String("path", path),
		zap.Int("chunks", len(chunks)))
	return nil
}

// CosineSimilarity returns the cosine of the angle between two vectors.
// Mismatched lengths or a zero-norm vector score 0 rather than erroring.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
