package postprocessors

import (
	"fmt"
	"slices"

	"github.com/anynomousfriend/Fathom-0x/internal/postprocessors/retriever"
)

// BuilderFunc creates a Scorer from generic config.
// Config is a map of scorer-specific settings parsed from user config.
type BuilderFunc func(cfg map[string]any) (retriever.Scorer, error)

// Registry maps scorer names to their builders.
// It allows dynamic construction of scorers from configuration.
type Registry struct {
	builders map[string]BuilderFunc
}

// NewRegistry creates a new scorer registry.
func NewRegistry() *Registry {
	return &Registry{
		builders: make(map[string]BuilderFunc),
	}
}

// Register adds a scorer builder to the registry.
// Name should be unique and match the scorer's Name() return value.
func (r *Registry) Register(name string, builder BuilderFunc) {
	r.builders[name] = builder
}

// Build creates a scorer by name with the given config.
// Returns error if the scorer name is not registered.
func (r *Registry) Build(name string, cfg map[string]any) (retriever.Scorer, error) {
	builder, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("unknown scorer: %s", name)
	}
	return builder(cfg)
}

// Has returns true if a scorer with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.builders[name]
	return ok
}

// Names returns all registered scorer names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
