// Package openai provides a generation backend using the OpenAI chat completions API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/anynomousfriend/Fathom-0x/internal/adapters/driven/llm"
	"github.com/anynomousfriend/Fathom-0x/internal/core/domain"
	"github.com/anynomousfriend/Fathom-0x/internal/core/ports/driven"
)

// Ensure Backend implements the interfaces.
var (
	_ driven.GenerationBackend = (*Backend)(nil)
	_ driven.PromptStoreAware  = (*Backend)(nil)
)

// Default configuration values.
const (
	DefaultModel       = openai.GPT3Dot5Turbo
	DefaultTimeout     = 30 * time.Second
	DefaultMaxTokens   = 500
	DefaultTemperature = 0.7
)

// Config holds configuration for the OpenAI backend.
type Config struct {
	// APIKey is the OpenAI API key. Without it the backend is unconfigured.
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the model to use (default: gpt-3.5-turbo).
	Model string

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration
}

// Backend answers questions with an OpenAI chat model.
type Backend struct {
	llm.Prompts

	client *openai.Client
	model  string
	hasKey bool
}

// New creates a new OpenAI backend.
func New(cfg Config) *Backend {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Backend{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		hasKey: cfg.APIKey != "",
	}
}

// Name returns "openai".
func (b *Backend) Name() string { return string(domain.ProviderOpenAI) }

// Model returns the model name.
func (b *Backend) Model() string { return b.model }

// Configured reports whether an API key is set.
func (b *Backend) Configured() bool { return b.hasKey }

// Try sends one chat completion and returns the first choice.
func (b *Backend) Try(ctx context.Context, docContext, question string) (string, error) {
	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: b.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: b.System()},
			{Role: openai.ChatMessageRoleUser, Content: b.User(docContext, question)},
		},
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return "", fmt.Errorf("openai: %w", domain.ErrRateLimited)
		}
		return "", fmt.Errorf("create chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("openai: no choices returned")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
