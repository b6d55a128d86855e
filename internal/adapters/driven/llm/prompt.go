// Package llm holds what every generation backend shares: prompt rendering
// with fallback to built-in defaults.
//
// Each backend lives in its own subpackage (gemini, openai, anthropic,
// ollama, vertex, bedrock) and embeds Prompts.
package llm

import (
	"fmt"
	"strings"
	"sync"

	"github.com/anynomousfriend/Fathom-0x/internal/core/ports/driven"
)

// Default prompts, used when no PromptStore is configured or a stored
// template is unusable.
const (
	DefaultSystemPrompt = "You are a helpful assistant that answers questions based on provided document context."
	DefaultUserPrompt   = "Context:\n%s\n\nQuestion: %s\n\nAnswer:"
)

// Prompts renders the system instruction and user message for a question.
// The zero value uses the defaults. Backends embed it to satisfy
// driven.PromptStoreAware.
type Prompts struct {
	mu    sync.RWMutex
	store driven.PromptStore
}

// SetPromptStore sets the prompt store for loading customisable prompts.
func (p *Prompts) SetPromptStore(store driven.PromptStore) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.store = store
}

// System returns the system instruction.
func (p *Prompts) System() string {
	return p.load(driven.PromptAnswerSystem, DefaultSystemPrompt)
}

// User returns the user message wrapping docContext and question.
func (p *Prompts) User(docContext, question string) string {
	tmpl := p.load(driven.PromptAnswerUser, DefaultUserPrompt)
	if strings.Count(tmpl, "%s") != 2 || strings.Count(tmpl, "%") != 2 {
		tmpl = DefaultUserPrompt
	}
	return fmt.Sprintf(tmpl, docContext, question)
}

// load loads a prompt from the store, falling back to the default if unavailable.
func (p *Prompts) load(name, fallback string) string {
	p.mu.RLock()
	store := p.store
	p.mu.RUnlock()

	if store == nil {
		return fallback
	}
	prompt, err := store.Load(name)
	if err != nil || strings.TrimSpace(prompt) == "" {
		return fallback
	}
	return prompt
}
