// Package vertex provides a generation backend using Gemini on Vertex AI.
// Credentials come from Application Default Credentials.
package vertex

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"cloud.google.com/go/vertexai/genai"

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
	DefaultModel  = "gemini-1.5-pro"
	DefaultRegion = "us-central1"
)

// Config holds configuration for the Vertex AI backend.
type Config struct {
	// ProjectID is the GCP project. Without it the backend is unconfigured.
	ProjectID string

	// Region is the Vertex AI location (default: us-central1).
	Region string

	// Model is the model to use (default: gemini-1.5-pro).
	Model string
}

// contentGenerator is the subset of *genai.GenerativeModel the backend uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Backend answers questions with Gemini served from Vertex AI.
// The client is created on first use so an idle backend needs no credentials.
type Backend struct {
	llm.Prompts

	projectID string
	region    string
	model     string

	mu     sync.Mutex
	client *genai.Client
	dial   func(ctx context.Context) (contentGenerator, error)
}

// New creates a new Vertex AI backend.
func New(cfg Config) *Backend {
	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	b := &Backend{
		projectID: cfg.ProjectID,
		region:    cfg.Region,
		model:     cfg.Model,
	}
	b.dial = b.dialGenAI
	return b
}

// Name returns "vertex".
func (b *Backend) Name() string { return string(domain.ProviderVertex) }

// Model returns the model name.
func (b *Backend) Model() string { return b.model }

// Configured reports whether a project is set.
func (b *Backend) Configured() bool { return b.projectID != "" }

// Try generates one answer.
func (b *Backend) Try(ctx context.Context, docContext, question string) (string, error) {
	model, err := b.dial(ctx)
	if err != nil {
		return "", err
	}

	resp, err := model.GenerateContent(ctx, genai.Text(b.User(docContext, question)))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("vertex: no candidates returned")
	}

	var result strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if text, ok := p.(genai.Text); ok {
			result.WriteString(string(text))
		}
	}
	return strings.TrimSpace(result.String()), nil
}

// Close releases the underlying client, if one was created.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.client == nil {
		return nil
	}
	err := b.client.Close()
	b.client = nil
	return err
}

// dialGenAI lazily creates the client and returns a model configured with
// the current prompts.
func (b *Backend) dialGenAI(ctx context.Context) (contentGenerator, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.client == nil {
		client, err := genai.NewClient(ctx, b.projectID, b.region)
		if err != nil {
			return nil, fmt.Errorf("genai.NewClient: %w", err)
		}
		b.client = client
	}

	model := b.client.GenerativeModel(b.model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(b.System())},
	}
	model.SetTemperature(0.7)
	model.SetMaxOutputTokens(500)
	return model, nil
}
