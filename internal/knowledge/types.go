// Package knowledge implements the semantic knowledge base over a source
// tree: an ordered collection of embedded chunks supporting append,
// similarity search, and snapshot persistence.
package knowledge

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
)

// Sentinel errors for knowledge base operations.
var (
	// ErrSnapshotNotFound is returned by Restore when no snapshot exists
	// at the given location. Callers typically fall back to a full ingest.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrEmptyQuery indicates an empty retrieval query.
	ErrEmptyQuery = errors.New("empty query")
)

// ContentType categorizes chunk content by source file extension.
type ContentType string

const (
	TypeCode          ContentType = "code"
	TypeDocumentation ContentType = "documentation"
	TypeConfiguration ContentType = "configuration"
	TypeOther         ContentType = "other"
)

// extensionTypes maps recognized file extensions to content types.
var extensionTypes = map[string]ContentType{
	".go":   TypeCode,
	".ts":   TypeCode,
	".tsx":  TypeCode,
	".js":   TypeCode,
	".jsx":  TypeCode,
	".py":   TypeCode,
	".rb":   TypeCode,
	".rs":   TypeCode,
	".java": TypeCode,
	".kt":   TypeCode,
	".c":    TypeCode,
	".h":    TypeCode,
	".cpp":  TypeCode,
	".cs":   TypeCode,

	".md":  TypeDocumentation,
	".mdx": TypeDocumentation,
	".rst": TypeDocumentation,

	".json": TypeConfiguration,
	".yaml": TypeConfiguration,
	".yml":  TypeConfiguration,
	".toml": TypeConfiguration,
}

// ClassifyPath returns the content type for a file path based on its
// extension. Unknown extensions map to TypeOther; the function is total.
func ClassifyPath(path string) ContentType {
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := extensionTypes[ext]; ok {
		return t
	}
	return TypeOther
}

// RecognizedExtension reports whether files with this extension are
// ingested at all. Everything the classifier knows about qualifies.
func RecognizedExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	_, ok := extensionTypes[ext]
	return ok
}

// ChunkMetadata holds provenance for a stored chunk.
type ChunkMetadata struct {
	// Source is a human-readable provenance string: a relative file path,
	// optionally suffixed with "(part i/N)" when the file was split.
	Source string `json:"source"`

	// Type is the content category derived from the source extension.
	Type ContentType `json:"type"`
}

// Chunk is the atomic unit stored in the knowledge base.
type Chunk struct {
	Content   string        `json:"content"`
	Embedding []float32     `json:"embedding"`
	Metadata  ChunkMetadata `json:"metadata"`
}

// Embedder generates vector embeddings from text.
type Embedder interface {
	// EmbedQuery generates an embedding for a single text.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// EmbedDocuments generates embeddings for multiple texts, one per input.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// sourcePath strips a "(part i/N)" suffix from a chunk source, returning
// the underlying relative file path.
func sourcePath(source string) string {
	if idx := strings.Index(source, " (part "); idx != -1 {
		return source[:idx]
	}
	return source
}
