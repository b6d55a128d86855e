package domain

import "time"

const unknownDescription = "Unknown"

// GenerationProvider identifies a text-generation service.
type GenerationProvider string

// Available generation providers.
const (
	// ProviderGemini is the Google Gemini REST API.
	ProviderGemini GenerationProvider = "gemini"

	// ProviderOpenAI is the OpenAI chat completions API.
	ProviderOpenAI GenerationProvider = "openai"

	// ProviderAnthropic is the Anthropic messages API.
	ProviderAnthropic GenerationProvider = "anthropic"

	// ProviderOllama is a local Ollama instance.
	ProviderOllama GenerationProvider = "ollama"

	// ProviderVertex is Gemini served through Google Cloud Vertex AI.
	ProviderVertex GenerationProvider = "vertex"

	// ProviderBedrock is Claude served through AWS Bedrock.
	ProviderBedrock GenerationProvider = "bedrock"
)

// IsValid returns true if the provider is recognised.
func (p GenerationProvider) IsValid() bool {
	switch p {
	case ProviderGemini, ProviderOpenAI, ProviderAnthropic, ProviderOllama, ProviderVertex, ProviderBedrock:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p GenerationProvider) RequiresAPIKey() bool {
	return p == ProviderGemini || p == ProviderOpenAI || p == ProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p GenerationProvider) IsLocal() bool {
	return p == ProviderOllama
}

// String returns the string representation.
func (p GenerationProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p GenerationProvider) Description() string {
	switch p {
	case ProviderGemini:
		return "Google Gemini (cloud)"
	case ProviderOpenAI:
		return "OpenAI (cloud)"
	case ProviderAnthropic:
		return "Anthropic (cloud)"
	case ProviderOllama:
		return "Ollama (local)"
	case ProviderVertex:
		return "Vertex AI Gemini (cloud)"
	case ProviderBedrock:
		return "AWS Bedrock (cloud)"
	default:
		return unknownDescription
	}
}

// DefaultGenerationModels returns default models for each provider.
func DefaultGenerationModels() map[GenerationProvider]string {
	return map[GenerationProvider]string{
		ProviderGemini:    "gemini-pro",
		ProviderOpenAI:    "gpt-3.5-turbo",
		ProviderAnthropic: "claude-3-5-sonnet-latest",
		ProviderOllama:    "llama3.2",
		ProviderVertex:    "gemini-1.5-pro",
		ProviderBedrock:   "anthropic.claude-3-haiku-20240307-v1:0",
	}
}

// BackendSettings configures one generation backend.
type BackendSettings struct {
	// Provider selects the adapter.
	Provider GenerationProvider

	// Model is the model name. Empty uses the provider default.
	Model string

	// BaseURL overrides the API endpoint.
	BaseURL string

	// APIKey is the provider credential. Never logged.
	APIKey string

	// ProjectID is used by Vertex AI. Region is used by Vertex AI and Bedrock.
	ProjectID string
	Region    string

	// Timeout bounds a single generation call.
	Timeout time.Duration
}

// IsConfigured returns true if the backend has the credentials it needs.
func (b BackendSettings) IsConfigured() bool {
	if !b.Provider.IsValid() {
		return false
	}
	switch {
	case b.Provider.RequiresAPIKey():
		return b.APIKey != ""
	case b.Provider == ProviderVertex:
		return b.ProjectID != ""
	case b.Provider == ProviderBedrock:
		return b.Region != ""
	case b.Provider.IsLocal():
		return b.BaseURL != ""
	}
	return false
}

// BlobStoreKind selects the blob store adapter.
type BlobStoreKind string

// Available blob stores.
const (
	BlobStoreWalrus BlobStoreKind = "walrus"
	BlobStoreGCS    BlobStoreKind = "gcs"
)

// TrackerBackend selects the QueryLedgerTracker implementation.
type TrackerBackend string

// Available tracker backends.
const (
	TrackerMemory    TrackerBackend = "memory"
	TrackerSQLite    TrackerBackend = "sqlite"
	TrackerFirestore TrackerBackend = "firestore"
	TrackerPostgres  TrackerBackend = "postgres"
	TrackerRedis     TrackerBackend = "redis"
	TrackerMongo     TrackerBackend = "mongo"
)

// IsValid returns true if the tracker backend is recognised.
func (t TrackerBackend) IsValid() bool {
	switch t {
	case TrackerMemory, TrackerSQLite, TrackerFirestore, TrackerPostgres, TrackerRedis, TrackerMongo:
		return true
	default:
		return false
	}
}

// WalrusSettings configures the Walrus aggregator client.
type WalrusSettings struct {
	AggregatorURL string
	Timeout       time.Duration
}

// GCSSettings configures the Cloud Storage blob mirror.
type GCSSettings struct {
	Bucket string
	Prefix string
}

// SuiSettings configures ledger access.
type SuiSettings struct {
	RPCURL         string
	PackageID      string
	ConfigObjectID string
	Module         string
	GasBudget      uint64
	Timeout        time.Duration

	// RequestsPerSecond paces JSON-RPC calls.
	RequestsPerSecond float64
}

// PipelineSettings configures chunking, retrieval and retries.
type PipelineSettings struct {
	ChunkSize    int
	ChunkOverlap int
	TopK         int
	Scorer       string

	// MaxAttempts bounds retries of fetch and submission.
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration

	// Concurrency bounds parallel pipeline runs.
	Concurrency int
}

// TrackerSettings configures the processed-query tracker.
type TrackerSettings struct {
	Backend             TrackerBackend
	DataDir             string
	FirestoreProject    string
	FirestoreCollection string

	// PostgresDSN is a libpq connection string. Never logged.
	PostgresDSN string

	// RedisAddr is host:port; RedisPassword is never logged.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// MongoURI may carry credentials. Never logged.
	MongoURI      string
	MongoDatabase string
}

// SourceSettings configures query discovery.
type SourceSettings struct {
	// LedgerEvents enables polling the ledger for new queries.
	LedgerEvents bool
	PollInterval time.Duration

	// InboxDir is a directory watched for request files. Empty disables it.
	InboxDir string

	// KeyringPath is a TOML file mapping blob ids to key material.
	KeyringPath string

	// HTTPAddr enables the HTTP API when non-empty, e.g. ":8000".
	HTTPAddr string
}

// OracleSettings holds all process configuration.
type OracleSettings struct {
	// PrivateKey is the oracle's Ed25519 seed, hex or base64. Never logged.
	PrivateKey string

	BlobStore BlobStoreKind
	Walrus    WalrusSettings
	GCS       GCSSettings
	Sui       SuiSettings
	Pipeline  PipelineSettings
	Tracker   TrackerSettings
	Sources   SourceSettings

	// Backends are generation backends in priority order.
	Backends []BackendSettings
}

// Default backend priority, matching the hosted services first.
var defaultBackendOrder = []GenerationProvider{ProviderGemini, ProviderOpenAI}

// DefaultBackendOrder returns the default generation priority.
func DefaultBackendOrder() []GenerationProvider {
	out := make([]GenerationProvider, len(defaultBackendOrder))
	copy(out, defaultBackendOrder)
	return out
}

// DefaultOracleSettings returns settings with sensible defaults.
// Credentials and ledger identifiers are left empty.
func DefaultOracleSettings() OracleSettings {
	return OracleSettings{
		BlobStore: BlobStoreWalrus,
		Walrus: WalrusSettings{
			AggregatorURL: "https://aggregator.walrus-testnet.walrus.space",
			Timeout:       30 * time.Second,
		},
		Sui: SuiSettings{
			RPCURL:            "https://fullnode.testnet.sui.io:443",
			Module:            "fathom",
			GasBudget:         10_000_000,
			Timeout:           30 * time.Second,
			RequestsPerSecond: 5,
		},
		Pipeline: PipelineSettings{
			ChunkSize:    1000,
			ChunkOverlap: 200,
			TopK:         3,
			Scorer:       "token_overlap",
			MaxAttempts:  4,
			BaseBackoff:  500 * time.Millisecond,
			MaxBackoff:   8 * time.Second,
			Concurrency:  4,
		},
		Tracker: TrackerSettings{
			Backend:             TrackerSQLite,
			FirestoreCollection: "processed_queries",
		},
		Sources: SourceSettings{
			LedgerEvents: true,
			PollInterval: 10 * time.Second,
		},
	}
}
