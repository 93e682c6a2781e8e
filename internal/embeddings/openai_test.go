package embeddings

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonlabs/docsentry/internal/config"
)

type fakeAPI struct {
	resp openai.EmbeddingResponse
	err  error
	last openai.EmbeddingRequestConverter
}

func (f *fakeAPI) CreateEmbeddings(ctx context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
	f.last = req
	return f.resp, f.err
}

func TestNewProviderRequiresAPIKey(t *testing.T) {
	_, err := NewProvider(config.EmbeddingsConfig{Provider: "openai"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewProviderUnknownProvider(t *testing.T) {
	_, err := NewProvider(config.EmbeddingsConfig{Provider: "cohere", APIKey: "k"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestDetectDimensionFromModel(t *testing.T) {
	assert.Equal(t, 1536, detectDimensionFromModel("text-embedding-3-small"))
	assert.Equal(t, 3072, detectDimensionFromModel("text-embedding-3-large"))
	assert.Equal(t, 1536, detectDimensionFromModel("something-else"))
}

func TestEmbedQuery(t *testing.T) {
	api := &fakeAPI{
		resp: openai.EmbeddingResponse{
			Data: []openai.Embedding{{Embedding: []float32{0.1, 0.2, 0.3}}},
		},
	}
	p := &OpenAIProvider{api: api, model: openai.SmallEmbedding3, dimension: 3}

	v, err := p.EmbedQuery(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, v)
}

func TestEmbedQueryEmptyText(t *testing.T) {
	p := &OpenAIProvider{api: &fakeAPI{}}
	_, err := p.EmbedQuery(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestEmbedQueryAPIError(t *testing.T) {
	p := &OpenAIProvider{api: &fakeAPI{err: errors.New("rate limited")}}
	_, err := p.EmbedQuery(context.Background(), "hello")
	assert.Error(t, err)
}

func TestEmbedDocuments(t *testing.T) {
	api := &fakeAPI{
		resp: openai.EmbeddingResponse{
			Data: []openai.Embedding{
				{Embedding: []float32{1}},
				{Embedding: []float32{2}},
			},
		},
	}
	p := &OpenAIProvider{api: api, model: openai.SmallEmbedding3}

	vs, err := p.EmbedDocuments(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vs, 2)
	assert.Equal(t, []float32{2}, vs[1])
}

func TestEmbedDocumentsCountMismatch(t *testing.T) {
	api := &fakeAPI{
		resp: openai.EmbeddingResponse{Data: []openai.Embedding{{Embedding: []float32{1}}}},
	}
	p := &OpenAIProvider{api: api}

	_, err := p.EmbedDocuments(context.Background(), []string{"a", "b"})
	assert.Error(t, err)
}

func TestEmbedDocumentsEmptyInput(t *testing.T) {
	p := &OpenAIProvider{api: &fakeAPI{}}
	vs, err := p.EmbedDocuments(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vs)
}
