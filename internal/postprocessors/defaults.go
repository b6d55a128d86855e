package postprocessors

import (
	"github.com/anynomousfriend/Fathom-0x/internal/postprocessors/retriever"
)

// RegisterDefaults registers all built-in scorers with the registry.
func RegisterDefaults(r *Registry) {
	r.Register(retriever.TokenOverlap{}.Name(), func(map[string]any) (retriever.Scorer, error) {
		return retriever.TokenOverlap{}, nil
	})
	r.Register(retriever.Jaccard{}.Name(), func(map[string]any) (retriever.Scorer, error) {
		return retriever.Jaccard{}, nil
	})
}

// NewRetriever builds a retriever for the named scorer from the default
// registry. An empty name selects token overlap.
func NewRetriever(scorer string) (*retriever.Retriever, error) {
	if scorer == "" {
		return retriever.New(nil), nil
	}
	r := NewRegistry()
	RegisterDefaults(r)
	s, err := r.Build(scorer, nil)
	if err != nil {
		return nil, err
	}
	return retriever.New(s), nil
}
