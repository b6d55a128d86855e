package domain

// Answer is a generated response to a question.
type Answer struct {
	// Text is the generated answer.
	Text string `json:"text"`

	// Backend names the generation backend that produced Text.
	Backend string `json:"backend_used"`

	// SupportingChunkIndices lists the chunks given as context, in rank order.
	SupportingChunkIndices []int `json:"supporting_chunk_indices"`

	// ChunksUsed is the number of chunks given as context.
	ChunksUsed int `json:"chunks_used"`

	// DocumentLength is the plaintext length in bytes.
	DocumentLength int `json:"document_length"`
}

// BackendStatus reports whether a generation backend is usable.
type BackendStatus struct {
	Name       string `json:"name"`
	Model      string `json:"model,omitempty"`
	Configured bool   `json:"configured"`
}
