package driven

import "context"

// GenerationBackend is one text-generation service used to answer questions.
//
// Implementations include:
//   - Gemini (Google AI Studio REST API)
//   - OpenAI (chat completions)
//   - Anthropic (messages API)
//   - Ollama (local models)
//   - Vertex AI (Gemini on Google Cloud)
//   - Bedrock (Claude on AWS)
type GenerationBackend interface {
	// Name identifies the backend, e.g. "gemini".
	Name() string

	// Model returns the model the backend generates with.
	Model() string

	// Configured reports whether credentials are present. Unconfigured
	// backends are skipped, not counted as failures.
	Configured() bool

	// Try asks the backend to answer question using only docContext.
	// The call is bounded by ctx; callers apply per-backend timeouts.
	Try(ctx context.Context, docContext, question string) (string, error)
}
