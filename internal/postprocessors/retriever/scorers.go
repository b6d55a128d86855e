package retriever

import (
	"strings"
	"unicode"
)

// TokenOverlap counts distinct words shared by the question and the chunk,
// ignoring case and punctuation.
type TokenOverlap struct{}

// Name returns the scorer name.
func (TokenOverlap) Name() string { return "token_overlap" }

// Score returns the size of the shared word set.
func (TokenOverlap) Score(question, chunk string) float64 {
	q := tokenSet(question)
	if len(q) == 0 {
		return 0
	}
	shared := 0
	for w := range tokenSet(chunk) {
		if _, ok := q[w]; ok {
			shared++
		}
	}
	return float64(shared)
}

// Jaccard scores by shared words over the union of both word sets, so long
// chunks are not favoured for their length alone.
type Jaccard struct{}

// Name returns the scorer name.
func (Jaccard) Name() string { return "jaccard" }

// Score returns |q ∩ c| / |q ∪ c|.
func (Jaccard) Score(question, chunk string) float64 {
	q := tokenSet(question)
	c := tokenSet(chunk)
	if len(q) == 0 || len(c) == 0 {
		return 0
	}
	shared := 0
	for w := range c {
		if _, ok := q[w]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(q)+len(c)-shared)
}

func tokenSet(s string) map[string]struct{} {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
