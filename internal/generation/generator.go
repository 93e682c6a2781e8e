// Package generation wraps the remote text-generation capability used to
// select affected documentation pages and draft updated content.
package generation

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/halcyonlabs/docsentry/internal/config"
)

// ErrEmptyPrompt is returned when the prompt is empty.
var ErrEmptyPrompt = errors.New("prompt cannot be empty")

// Generator produces text from a system instruction and a prompt.
type Generator interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// chatAPI is the slice of the OpenAI client used here.
type chatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIGenerator implements Generator on the OpenAI chat completions API.
type OpenAIGenerator struct {
	api   chatAPI
	model string
}

// NewOpenAIGenerator creates a generator from config.
func NewOpenAIGenerator(cfg config.GenerationConfig) (*OpenAIGenerator, error) {
	if !cfg.APIKey.IsSet() {
		return nil, errors.New("generation api_key is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey.Value())
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = openai.GPT4o
	}

	return &OpenAIGenerator{
		api:   openai.NewClientWithConfig(clientCfg),
		model: model,
	}, nil
}

// Complete sends the prompt and returns the first choice's content.
func (g *OpenAIGenerator) Complete(ctx context.Context, system, prompt string) (string, error) {
	if prompt == "" {
		return "", ErrEmptyPrompt
	}

	messages := []openai.ChatCompletionMessage{}
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	resp, err := g.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    g.model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
