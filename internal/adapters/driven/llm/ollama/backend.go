// Package ollama provides a generation backend using a local Ollama instance.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

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
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.2"
	DefaultTimeout = 120 * time.Second
)

// Config holds configuration for the Ollama backend.
type Config struct {
	// BaseURL is the Ollama API base URL. The backend is only configured
	// when it is set explicitly.
	BaseURL string

	// Model is the model to use (default: llama3.2).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// Backend answers questions with a locally served model.
type Backend struct {
	llm.Prompts

	client     *api.Client
	baseURL    string
	model      string
	configured bool
}

// New creates a new Ollama backend.
func New(cfg Config) *Backend {
	configured := cfg.BaseURL != ""
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	b := &Backend{
		baseURL:    baseURL,
		model:      cfg.Model,
		configured: configured,
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		b.configured = false
		return b
	}
	b.client = api.NewClient(base, &http.Client{Timeout: cfg.Timeout})
	return b
}

// Name returns "ollama".
func (b *Backend) Name() string { return string(domain.ProviderOllama) }

// Model returns the model name.
func (b *Backend) Model() string { return b.model }

// Configured reports whether a usable base URL was given.
func (b *Backend) Configured() bool { return b.configured }

// Try sends one non-streaming chat request.
func (b *Backend) Try(ctx context.Context, docContext, question string) (string, error) {
	if b.client == nil {
		return "", errors.New("ollama: invalid base URL")
	}

	stream := false
	req := &api.ChatRequest{
		Model: b.model,
		Messages: []api.Message{
			{Role: "system", Content: b.System()},
			{Role: "user", Content: b.User(docContext, question)},
		},
		Stream: &stream,
		Options: map[string]any{
			"num_predict": 500,
			"temperature": 0.7,
		},
	}

	var answer strings.Builder
	err := b.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		answer.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		var statusErr api.StatusError
		if errors.As(err, &statusErr) {
			if statusErr.StatusCode == http.StatusTooManyRequests {
				return "", fmt.Errorf("ollama: %w", domain.ErrRateLimited)
			}
			return "", fmt.Errorf("ollama error (status %d): %s", statusErr.StatusCode, statusErr.ErrorMessage)
		}
		return "", fmt.Errorf("ollama chat: %w", err)
	}

	return strings.TrimSpace(answer.String()), nil
}
