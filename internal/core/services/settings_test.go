package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anynomousfriend/Fathom-0x/internal/adapters/driven/storage/memory"
	"github.com/anynomousfriend/Fathom-0x/internal/core/domain"
)

func envFrom(vars map[string]string) func(string) string {
	return func(name string) string { return vars[name] }
}

func newTestSettings(values map[string]any, env map[string]string) *SettingsService {
	return NewSettingsService(memory.NewConfigStoreFrom(values), envFrom(env))
}

// configuredValues is the smallest config that passes Validate.
func configuredValues() map[string]any {
	return map[string]any{
		"oracle.private_key":     "11",
		"sui.package_id":         "0xpkg",
		"sui.config_object_id":   "0xcfg",
		"llm.gemini.api_key":     "g-key",
		"walrus.aggregator_url":  "https://aggregator.example",
		"tracker.backend":        "memory",
		"pipeline.chunk_size":    1000,
		"pipeline.chunk_overlap": 200,
	}
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service := newTestSettings(nil, nil)

	settings, err := service.Get()
	require.NoError(t, err)

	defaults := domain.DefaultOracleSettings()
	assert.Equal(t, defaults.Walrus, settings.Walrus)
	assert.Equal(t, defaults.Sui, settings.Sui)
	assert.Equal(t, defaults.Pipeline, settings.Pipeline)
	assert.Equal(t, defaults.Tracker.Backend, settings.Tracker.Backend)
	assert.Equal(t, defaults.Sources.PollInterval, settings.Sources.PollInterval)
	assert.Empty(t, settings.PrivateKey)

	require.Len(t, settings.Backends, 2)
	assert.Equal(t, domain.ProviderGemini, settings.Backends[0].Provider)
	assert.Equal(t, "gemini-pro", settings.Backends[0].Model)
	assert.Equal(t, domain.ProviderOpenAI, settings.Backends[1].Provider)
	assert.False(t, settings.Backends[0].IsConfigured())
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	service := newTestSettings(map[string]any{
		"walrus.aggregator_url":      "http://localhost:9000/",
		"walrus.timeout_seconds":     5,
		"pipeline.chunk_size":        500,
		"pipeline.top_k":             5,
		"pipeline.base_backoff_ms":   100,
		"sui.requests_per_second":    2.5,
		"poll.enabled":               false,
		"llm.order":                  []any{"anthropic", "bogus", "anthropic", "ollama"},
		"llm.anthropic.api_key":      "a-key",
		"llm.anthropic.model":        "claude-custom",
		"llm.ollama.base_url":        "http://localhost:11434",
		"llm.ollama.timeout_seconds": 90,
	}, nil)

	settings, err := service.Get()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9000", settings.Walrus.AggregatorURL)
	assert.Equal(t, 5*time.Second, settings.Walrus.Timeout)
	assert.Equal(t, 500, settings.Pipeline.ChunkSize)
	assert.Equal(t, 5, settings.Pipeline.TopK)
	assert.Equal(t, 100*time.Millisecond, settings.Pipeline.BaseBackoff)
	assert.InDelta(t, 2.5, settings.Sui.RequestsPerSecond, 1e-9)
	assert.False(t, settings.Sources.LedgerEvents)

	require.Len(t, settings.Backends, 2)
	assert.Equal(t, domain.BackendSettings{
		Provider: domain.ProviderAnthropic,
		Model:    "claude-custom",
		APIKey:   "a-key",
	}, settings.Backends[0])
	assert.Equal(t, domain.ProviderOllama, settings.Backends[1].Provider)
	assert.Equal(t, 90*time.Second, settings.Backends[1].Timeout)
	assert.True(t, settings.Backends[1].IsConfigured())
}

func TestSettingsService_Get_EnvironmentWins(t *testing.T) {
	service := newTestSettings(
		map[string]any{
			"llm.gemini.api_key": "from-file",
			"sui.package_id":     "0xfile",
		},
		map[string]string{
			"GEMINI_API_KEY":      "from-env",
			"CONTRACT_PACKAGE_ID": "0xenv",
			"ORACLE_PRIVATE_KEY":  "seed",
			"POLL_INTERVAL":       "3",
			"AWS_REGION":          "us-east-1",
			"VERTEX_PROJECT_ID":   "gcp-project",
		},
	)

	settings, err := service.Get()
	require.NoError(t, err)

	assert.Equal(t, "from-env", settings.Backends[0].APIKey)
	assert.Equal(t, "0xenv", settings.Sui.PackageID)
	assert.Equal(t, "seed", settings.PrivateKey)
	assert.Equal(t, 3*time.Second, settings.Sources.PollInterval)
	assert.Equal(t, "gcp-project", settings.Tracker.FirestoreProject)
}

func TestSettingsService_Set_ParsesTypedKeys(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, envFrom(nil))

	require.NoError(t, service.Set("pipeline.top_k", "7"))
	require.NoError(t, service.Set("sui.requests_per_second", "1.5"))
	require.NoError(t, service.Set("poll.enabled", "false"))
	require.NoError(t, service.Set("llm.order", "openai, gemini ,"))
	require.NoError(t, service.Set("walrus.aggregator_url", "http://agg"))

	assert.Equal(t, 7, store.GetInt("pipeline.top_k"))
	assert.InDelta(t, 1.5, store.GetFloat("sui.requests_per_second"), 1e-9)
	val, ok := store.Get("poll.enabled")
	require.True(t, ok)
	assert.Equal(t, false, val)
	assert.Equal(t, []string{"openai", "gemini"}, store.GetStringSlice("llm.order"))
	assert.Equal(t, "http://agg", store.GetString("walrus.aggregator_url"))
}

func TestSettingsService_Set_RejectsBadValues(t *testing.T) {
	service := newTestSettings(nil, nil)

	assert.ErrorIs(t, service.Set("pipeline.top_k", "three"), domain.ErrInvalidInput)
	assert.ErrorIs(t, service.Set("poll.enabled", "maybe"), domain.ErrInvalidInput)
	assert.ErrorIs(t, service.Set("  ", "x"), domain.ErrInvalidInput)
}

func TestSettingsService_Lookup_HidesSecrets(t *testing.T) {
	service := newTestSettings(map[string]any{
		"oracle.private_key":    "deadbeef",
		"llm.openai.api_key":    "sk-secret",
		"walrus.aggregator_url": "http://agg",
		"pipeline.top_k":        4,
	}, nil)

	val, ok := service.Lookup("oracle.private_key")
	assert.True(t, ok)
	assert.Equal(t, "[set]", val)

	val, ok = service.Lookup("llm.openai.api_key")
	assert.True(t, ok)
	assert.NotContains(t, val, "sk-secret")

	val, ok = service.Lookup("walrus.aggregator_url")
	assert.True(t, ok)
	assert.Equal(t, "http://agg", val)

	val, ok = service.Lookup("pipeline.top_k")
	assert.True(t, ok)
	assert.Equal(t, "4", val)

	_, ok = service.Lookup("missing.key")
	assert.False(t, ok)
}

func TestSettingsService_Validate_Configured(t *testing.T) {
	service := newTestSettings(configuredValues(), nil)
	assert.NoError(t, service.Validate())
}

func TestSettingsService_Validate_Failures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(values map[string]any)
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing private key",
			mutate:  func(v map[string]any) { delete(v, "oracle.private_key") },
			wantErr: "oracle.private_key",
		},
		{
			name:    "missing package id",
			mutate:  func(v map[string]any) { delete(v, "sui.package_id") },
			wantErr: "sui.package_id",
		},
		{
			name:    "overlap not smaller than size",
			mutate:  func(v map[string]any) { v["pipeline.chunk_overlap"] = 1000 },
			wantErr: "pipeline.chunk_overlap",
		},
		{
			name:    "no configured backend",
			mutate:  func(v map[string]any) { delete(v, "llm.gemini.api_key") },
			wantErr: domain.ErrNoBackends.Error(),
		},
		{
			name:    "unknown provider in order",
			mutate:  func(v map[string]any) { v["llm.order"] = []string{"gemini", "palm"} },
			wantErr: "unknown provider palm",
		},
		{
			name:    "unknown tracker",
			mutate:  func(v map[string]any) { v["tracker.backend"] = "etcd" },
			wantErr: "tracker.backend",
		},
		{
			name:    "postgres without dsn",
			mutate:  func(v map[string]any) { v["tracker.backend"] = "postgres" },
			wantErr: "tracker.postgres_dsn",
		},
		{
			name:    "mongo without uri",
			mutate:  func(v map[string]any) { v["tracker.backend"] = "mongo" },
			wantErr: "tracker.mongo_uri",
		},
		{
			name:    "gcs without bucket",
			mutate:  func(v map[string]any) { v["blobstore.kind"] = "gcs" },
			wantErr: "gcs.bucket",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := configuredValues()
			tt.mutate(values)

			err := newTestSettings(values, tt.env).Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSettingsService_Validate_PrivateKeyFromEnv(t *testing.T) {
	values := configuredValues()
	delete(values, "oracle.private_key")

	service := newTestSettings(values, map[string]string{"ORACLE_PRIVATE_KEY": "seed"})
	assert.NoError(t, service.Validate())
}

func TestSettingsService_GetDefaults(t *testing.T) {
	service := newTestSettings(nil, nil)
	assert.Equal(t, domain.DefaultOracleSettings(), service.GetDefaults())
}
