// Package ai provides factory functions for creating generation backends.
package ai

import (
	"fmt"
	"io"
	"time"

	"github.com/anynomousfriend/Fathom-0x/internal/adapters/driven/llm/anthropic"
	"github.com/anynomousfriend/Fathom-0x/internal/adapters/driven/llm/bedrock"
	"github.com/anynomousfriend/Fathom-0x/internal/adapters/driven/llm/gemini"
	"github.com/anynomousfriend/Fathom-0x/internal/adapters/driven/llm/ollama"
	"github.com/anynomousfriend/Fathom-0x/internal/adapters/driven/llm/openai"
	"github.com/anynomousfriend/Fathom-0x/internal/adapters/driven/llm/vertex"
	"github.com/anynomousfriend/Fathom-0x/internal/core/domain"
	"github.com/anynomousfriend/Fathom-0x/internal/core/ports/driven"
)

// Backend is a built generation backend with its per-call timeout.
type Backend struct {
	driven.GenerationBackend

	// Timeout bounds one Try call. Zero uses the generator default.
	Timeout time.Duration
}

// InitResult contains the backends built from settings, in priority order.
type InitResult struct {
	Backends []Backend
	Warnings []string // Backends that were built but lack credentials.

	closers []io.Closer
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	for _, c := range r.closers {
		c.Close() //nolint:errcheck
	}
	r.closers = nil
}

// CreateBackends builds every backend in settings, configured or not, so that
// health reporting can list them. Unconfigured backends are skipped at
// generation time. prompts may be nil to use built-in prompts.
func CreateBackends(settings []domain.BackendSettings, prompts driven.PromptStore) (*InitResult, error) {
	result := &InitResult{}
	for _, s := range settings {
		backend, err := CreateBackend(s)
		if err != nil {
			result.Close()
			return nil, err
		}
		if prompts != nil {
			if aware, ok := backend.(driven.PromptStoreAware); ok {
				aware.SetPromptStore(prompts)
			}
		}
		if c, ok := backend.(io.Closer); ok {
			result.closers = append(result.closers, c)
		}
		if !backend.Configured() {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s backend is not configured", s.Provider))
		}
		result.Backends = append(result.Backends, Backend{GenerationBackend: backend, Timeout: s.Timeout})
	}
	return result, nil
}

// CreateBackend creates the generation backend for one provider.
func CreateBackend(s domain.BackendSettings) (driven.GenerationBackend, error) {
	switch s.Provider {
	case domain.ProviderGemini:
		return gemini.New(gemini.Config{
			APIKey:  s.APIKey,
			BaseURL: s.BaseURL,
			Model:   s.Model,
			Timeout: s.Timeout,
		}), nil

	case domain.ProviderOpenAI:
		return openai.New(openai.Config{
			APIKey:  s.APIKey,
			BaseURL: s.BaseURL,
			Model:   s.Model,
			Timeout: s.Timeout,
		}), nil

	case domain.ProviderAnthropic:
		return anthropic.New(anthropic.Config{
			APIKey:  s.APIKey,
			BaseURL: s.BaseURL,
			Model:   s.Model,
			Timeout: s.Timeout,
		}), nil

	case domain.ProviderOllama:
		return ollama.New(ollama.Config{
			BaseURL: s.BaseURL,
			Model:   s.Model,
			Timeout: s.Timeout,
		}), nil

	case domain.ProviderVertex:
		return vertex.New(vertex.Config{
			ProjectID: s.ProjectID,
			Region:    s.Region,
			Model:     s.Model,
		}), nil

	case domain.ProviderBedrock:
		return bedrock.New(bedrock.Config{
			Region: s.Region,
			Model:  s.Model,
		}), nil

	default:
		return nil, &domain.ConfigError{Field: "llm.order", Reason: fmt.Sprintf("unsupported provider %q", s.Provider)}
	}
}
