package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestGenerationProvider_IsValid tests all valid and invalid providers
func TestGenerationProvider_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		provider GenerationProvider
		expected bool
	}{
		{name: "gemini is valid", provider: ProviderGemini, expected: true},
		{name: "openai is valid", provider: ProviderOpenAI, expected: true},
		{name: "anthropic is valid", provider: ProviderAnthropic, expected: true},
		{name: "ollama is valid", provider: ProviderOllama, expected: true},
		{name: "vertex is valid", provider: ProviderVertex, expected: true},
		{name: "bedrock is valid", provider: ProviderBedrock, expected: true},
		{name: "empty string is invalid", provider: GenerationProvider(""), expected: false},
		{name: "unknown provider is invalid", provider: GenerationProvider("mock"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.provider.IsValid())
		})
	}
}

func TestGenerationProvider_Description(t *testing.T) {
	assert.Equal(t, "Ollama (local)", ProviderOllama.Description())
	assert.Equal(t, unknownDescription, GenerationProvider("x").Description())
}

func TestDefaultGenerationModels_CoversAllProviders(t *testing.T) {
	models := DefaultGenerationModels()
	for _, p := range []GenerationProvider{ProviderGemini, ProviderOpenAI, ProviderAnthropic, ProviderOllama, ProviderVertex, ProviderBedrock} {
		assert.NotEmpty(t, models[p], p)
	}
	assert.Equal(t, "gpt-3.5-turbo", models[ProviderOpenAI])
}

func TestBackendSettings_IsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		settings BackendSettings
		expected bool
	}{
		{"gemini with key", BackendSettings{Provider: ProviderGemini, APIKey: "k"}, true},
		{"gemini without key", BackendSettings{Provider: ProviderGemini}, false},
		{"openai with key", BackendSettings{Provider: ProviderOpenAI, APIKey: "k"}, true},
		{"vertex with project", BackendSettings{Provider: ProviderVertex, ProjectID: "p"}, true},
		{"vertex without project", BackendSettings{Provider: ProviderVertex, APIKey: "k"}, false},
		{"bedrock with region", BackendSettings{Provider: ProviderBedrock, Region: "us-east-1"}, true},
		{"bedrock without region", BackendSettings{Provider: ProviderBedrock}, false},
		{"ollama with url", BackendSettings{Provider: ProviderOllama, BaseURL: "http://localhost:11434"}, true},
		{"ollama without url", BackendSettings{Provider: ProviderOllama}, false},
		{"invalid provider", BackendSettings{Provider: "x", APIKey: "k"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.settings.IsConfigured())
		})
	}
}

func TestTrackerBackend_IsValid(t *testing.T) {
	assert.True(t, TrackerMemory.IsValid())
	assert.True(t, TrackerSQLite.IsValid())
	assert.True(t, TrackerFirestore.IsValid())
	assert.True(t, TrackerPostgres.IsValid())
	assert.True(t, TrackerRedis.IsValid())
	assert.True(t, TrackerMongo.IsValid())
	assert.False(t, TrackerBackend("etcd").IsValid())
	assert.False(t, TrackerBackend("").IsValid())
}

func TestDefaultOracleSettings(t *testing.T) {
	s := DefaultOracleSettings()

	assert.Equal(t, BlobStoreWalrus, s.BlobStore)
	assert.Equal(t, 30*time.Second, s.Walrus.Timeout)
	assert.Equal(t, 1000, s.Pipeline.ChunkSize)
	assert.Equal(t, 200, s.Pipeline.ChunkOverlap)
	assert.Equal(t, 3, s.Pipeline.TopK)
	assert.Equal(t, 4, s.Pipeline.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, s.Pipeline.BaseBackoff)
	assert.Equal(t, 8*time.Second, s.Pipeline.MaxBackoff)
	assert.Equal(t, uint64(10_000_000), s.Sui.GasBudget)
	assert.Equal(t, TrackerSQLite, s.Tracker.Backend)
	assert.Empty(t, s.PrivateKey)
	assert.Empty(t, s.Backends)
}

func TestDefaultBackendOrder_ReturnsCopy(t *testing.T) {
	order := DefaultBackendOrder()
	assert.Equal(t, []GenerationProvider{ProviderGemini, ProviderOpenAI}, order)

	order[0] = ProviderOllama
	assert.Equal(t, ProviderGemini, DefaultBackendOrder()[0])
}
