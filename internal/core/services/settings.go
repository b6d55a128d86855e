package services

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/anynomousfriend/Fathom-0x/internal/core/domain"
	"github.com/anynomousfriend/Fathom-0x/internal/core/ports/driven"
	"github.com/anynomousfriend/Fathom-0x/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyPrivateKey = "oracle.private_key"
	keyBlobStore  = "blobstore.kind"

	keyWalrusURL     = "walrus.aggregator_url"
	keyWalrusTimeout = "walrus.timeout_seconds"
	keyGCSBucket     = "gcs.bucket"
	keyGCSPrefix     = "gcs.prefix"

	keySuiRPCURL     = "sui.rpc_url"
	keySuiPackageID  = "sui.package_id"
	keySuiConfigObj  = "sui.config_object_id"
	keySuiModule     = "sui.module"
	keySuiGasBudget  = "sui.gas_budget"
	keySuiTimeout    = "sui.timeout_seconds"
	keySuiRatePerSec = "sui.requests_per_second"

	keyChunkSize    = "pipeline.chunk_size"
	keyChunkOverlap = "pipeline.chunk_overlap"
	keyTopK         = "pipeline.top_k"
	keyScorer       = "pipeline.scorer"
	keyMaxAttempts  = "pipeline.max_attempts"
	keyBaseBackoff  = "pipeline.base_backoff_ms"
	keyMaxBackoff   = "pipeline.max_backoff_seconds"
	keyConcurrency  = "pipeline.concurrency"

	keyTrackerBackend   = "tracker.backend"
	keyTrackerDataDir   = "tracker.data_dir"
	keyFirestoreProject = "tracker.firestore_project"
	keyFirestoreColl    = "tracker.firestore_collection"
	keyPostgresDSN      = "tracker.postgres_dsn"
	keyRedisAddr        = "tracker.redis_addr"
	keyRedisPassword    = "tracker.redis_password"
	keyRedisDB          = "tracker.redis_db"
	keyMongoURI         = "tracker.mongo_uri"
	keyMongoDatabase    = "tracker.mongo_database"

	keyLedgerEvents = "poll.enabled"
	keyPollInterval = "poll.interval_seconds"
	keyInboxDir     = "inbox.dir"
	keyKeyringPath  = "keyring.path"
	keyHTTPAddr     = "http.addr"

	keyLLMOrder = "llm.order"
)

// Environment overrides. Values from the environment win over the config file.
//
//nolint:gosec // G101: These are variable names, not actual credentials.
var envOverrides = map[string]string{
	"ORACLE_PRIVATE_KEY":       keyPrivateKey,
	"WALRUS_AGGREGATOR":        keyWalrusURL,
	"SUI_RPC_URL":              keySuiRPCURL,
	"CONTRACT_PACKAGE_ID":      keySuiPackageID,
	"CONFIG_OBJECT_ID":         keySuiConfigObj,
	"POLL_INTERVAL":            keyPollInterval,
	"GEMINI_API_KEY":           backendKey(domain.ProviderGemini, "api_key"),
	"OPENAI_API_KEY":           backendKey(domain.ProviderOpenAI, "api_key"),
	"ANTHROPIC_API_KEY":        backendKey(domain.ProviderAnthropic, "api_key"),
	"OLLAMA_HOST":              backendKey(domain.ProviderOllama, "base_url"),
	"VERTEX_PROJECT_ID":        backendKey(domain.ProviderVertex, "project_id"),
	"VERTEX_REGION":            backendKey(domain.ProviderVertex, "region"),
	"AWS_REGION":               backendKey(domain.ProviderBedrock, "region"),
	"FATHOM_TRACKER":           keyTrackerBackend,
	"FATHOM_POSTGRES_DSN":      keyPostgresDSN,
	"FATHOM_REDIS_ADDR":        keyRedisAddr,
	"FATHOM_MONGO_URI":         keyMongoURI,
	"FATHOM_HTTP_ADDR":         keyHTTPAddr,
	"FATHOM_INBOX_DIR":         keyInboxDir,
	"FATHOM_KEYRING":           keyKeyringPath,
	"FATHOM_GCS_BUCKET":        keyGCSBucket,
	"FATHOM_FIRESTORE_PROJECT": keyFirestoreProject,
}

// Keys whose string values are parsed before storing.
var (
	intKeys = []string{
		keyWalrusTimeout, keySuiGasBudget, keySuiTimeout, keyChunkSize, keyChunkOverlap,
		keyTopK, keyMaxAttempts, keyBaseBackoff, keyMaxBackoff, keyConcurrency,
		keyRedisDB, keyPollInterval,
	}
	floatKeys = []string{keySuiRatePerSec}
	boolKeys  = []string{keyLedgerEvents}
	listKeys  = []string{keyLLMOrder}
)

// secretKeys are never returned by Lookup.
var secretKeys = []string{keyPrivateKey, keyPostgresDSN, keyRedisPassword, keyMongoURI}

// SettingsService builds oracle settings from defaults, the config store and
// the environment, in that order of precedence.
type SettingsService struct {
	configStore driven.ConfigStore
	getenv      func(string) string
}

// NewSettingsService creates a new settings service. A nil getenv reads the
// process environment.
func NewSettingsService(configStore driven.ConfigStore, getenv func(string) string) *SettingsService {
	if getenv == nil {
		getenv = os.Getenv
	}
	return &SettingsService{
		configStore: configStore,
		getenv:      getenv,
	}
}

// Get retrieves current oracle settings.
func (s *SettingsService) Get() (*domain.OracleSettings, error) {
	d := domain.DefaultOracleSettings()

	settings := &domain.OracleSettings{
		PrivateKey: s.getString(keyPrivateKey, ""),
		BlobStore:  domain.BlobStoreKind(s.getString(keyBlobStore, string(d.BlobStore))),
		Walrus: domain.WalrusSettings{
			AggregatorURL: strings.TrimRight(s.getString(keyWalrusURL, d.Walrus.AggregatorURL), "/"),
			Timeout:       s.getSeconds(keyWalrusTimeout, d.Walrus.Timeout),
		},
		GCS: domain.GCSSettings{
			Bucket: s.getString(keyGCSBucket, ""),
			Prefix: s.getString(keyGCSPrefix, ""),
		},
		Sui: domain.SuiSettings{
			RPCURL:            s.getString(keySuiRPCURL, d.Sui.RPCURL),
			PackageID:         s.getString(keySuiPackageID, ""),
			ConfigObjectID:    s.getString(keySuiConfigObj, ""),
			Module:            s.getString(keySuiModule, d.Sui.Module),
			GasBudget:         uint64(s.getInt(keySuiGasBudget, int(d.Sui.GasBudget))),
			Timeout:           s.getSeconds(keySuiTimeout, d.Sui.Timeout),
			RequestsPerSecond: s.getFloat(keySuiRatePerSec, d.Sui.RequestsPerSecond),
		},
		Pipeline: domain.PipelineSettings{
			ChunkSize:    s.getInt(keyChunkSize, d.Pipeline.ChunkSize),
			ChunkOverlap: s.getInt(keyChunkOverlap, d.Pipeline.ChunkOverlap),
			TopK:         s.getInt(keyTopK, d.Pipeline.TopK),
			Scorer:       s.getString(keyScorer, d.Pipeline.Scorer),
			MaxAttempts:  s.getInt(keyMaxAttempts, d.Pipeline.MaxAttempts),
			BaseBackoff:  s.getDuration(keyBaseBackoff, time.Millisecond, d.Pipeline.BaseBackoff),
			MaxBackoff:   s.getSeconds(keyMaxBackoff, d.Pipeline.MaxBackoff),
			Concurrency:  s.getInt(keyConcurrency, d.Pipeline.Concurrency),
		},
		Tracker: domain.TrackerSettings{
			Backend:             domain.TrackerBackend(s.getString(keyTrackerBackend, string(d.Tracker.Backend))),
			DataDir:             s.getString(keyTrackerDataDir, ""),
			FirestoreProject:    s.getString(keyFirestoreProject, ""),
			FirestoreCollection: s.getString(keyFirestoreColl, d.Tracker.FirestoreCollection),
			PostgresDSN:         s.getString(keyPostgresDSN, ""),
			RedisAddr:           s.getString(keyRedisAddr, ""),
			RedisPassword:       s.getString(keyRedisPassword, ""),
			RedisDB:             s.getInt(keyRedisDB, 0),
			MongoURI:            s.getString(keyMongoURI, ""),
			MongoDatabase:       s.getString(keyMongoDatabase, ""),
		},
		Sources: domain.SourceSettings{
			LedgerEvents: s.getBool(keyLedgerEvents, d.Sources.LedgerEvents),
			PollInterval: s.getSeconds(keyPollInterval, d.Sources.PollInterval),
			InboxDir:     s.getString(keyInboxDir, ""),
			KeyringPath:  s.getString(keyKeyringPath, ""),
			HTTPAddr:     s.getString(keyHTTPAddr, ""),
		},
		Backends: s.getBackends(),
	}

	// A vertex project doubles as the firestore project when unset.
	if settings.Tracker.FirestoreProject == "" {
		settings.Tracker.FirestoreProject = s.getString(backendKey(domain.ProviderVertex, "project_id"), "")
	}

	return settings, nil
}

// Set stores a single config key and persists the file. String values for
// numeric, boolean and list keys are parsed first.
func (s *SettingsService) Set(key string, value any) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("config key: %w", domain.ErrInvalidInput)
	}

	if str, ok := value.(string); ok {
		parsed, err := parseValue(key, str)
		if err != nil {
			return err
		}
		value = parsed
	}

	if err := s.configStore.Set(key, value); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Lookup returns the effective value of key for display. Secrets report only
// whether they are set.
func (s *SettingsService) Lookup(key string) (string, bool) {
	val := s.getString(key, "")
	if val == "" {
		if raw, ok := s.configStore.Get(key); ok {
			val = fmt.Sprint(raw)
		}
	}
	if val == "" {
		return "", false
	}
	if isSecretKey(key) {
		return "[set]", true
	}
	return val, true
}

// Validate checks that the settings can run the pipeline.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	var errs []error
	if settings.PrivateKey == "" {
		errs = append(errs, &domain.ConfigError{Field: keyPrivateKey, Reason: "required (or set ORACLE_PRIVATE_KEY)"})
	}
	if settings.Sui.PackageID == "" {
		errs = append(errs, &domain.ConfigError{Field: keySuiPackageID, Reason: "required (or set CONTRACT_PACKAGE_ID)"})
	}
	if settings.Sui.ConfigObjectID == "" {
		errs = append(errs, &domain.ConfigError{Field: keySuiConfigObj, Reason: "required (or set CONFIG_OBJECT_ID)"})
	}
	if err := validatePipeline(settings.Pipeline); err != nil {
		errs = append(errs, err)
	}
	if err := validateBlobStore(settings); err != nil {
		errs = append(errs, err)
	}
	if err := validateTracker(settings.Tracker); err != nil {
		errs = append(errs, err)
	}

	if !slices.ContainsFunc(settings.Backends, domain.BackendSettings.IsConfigured) {
		errs = append(errs, fmt.Errorf("llm: %w", domain.ErrNoBackends))
	}
	for _, name := range s.configStore.GetStringSlice(keyLLMOrder) {
		if !domain.GenerationProvider(name).IsValid() {
			errs = append(errs, &domain.ConfigError{Field: keyLLMOrder, Reason: "unknown provider " + name})
		}
	}

	return errors.Join(errs...)
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.OracleSettings {
	return domain.DefaultOracleSettings()
}

func validatePipeline(p domain.PipelineSettings) error {
	switch {
	case p.ChunkSize <= 0:
		return &domain.ConfigError{Field: keyChunkSize, Reason: "must be positive"}
	case p.ChunkOverlap < 0:
		return &domain.ConfigError{Field: keyChunkOverlap, Reason: "must not be negative"}
	case p.ChunkOverlap >= p.ChunkSize:
		return &domain.ConfigError{Field: keyChunkOverlap, Reason: "must be smaller than chunk_size"}
	case p.TopK <= 0:
		return &domain.ConfigError{Field: keyTopK, Reason: "must be positive"}
	case p.MaxAttempts <= 0:
		return &domain.ConfigError{Field: keyMaxAttempts, Reason: "must be positive"}
	}
	return nil
}

func validateBlobStore(settings *domain.OracleSettings) error {
	switch settings.BlobStore {
	case domain.BlobStoreWalrus:
		if settings.Walrus.AggregatorURL == "" {
			return &domain.ConfigError{Field: keyWalrusURL, Reason: "required"}
		}
	case domain.BlobStoreGCS:
		if settings.GCS.Bucket == "" {
			return &domain.ConfigError{Field: keyGCSBucket, Reason: "required for the gcs blob store"}
		}
	default:
		return &domain.ConfigError{Field: keyBlobStore, Reason: "unknown blob store " + string(settings.BlobStore)}
	}
	return nil
}

func validateTracker(t domain.TrackerSettings) error {
	if !t.Backend.IsValid() {
		return &domain.ConfigError{Field: keyTrackerBackend, Reason: "unknown tracker " + string(t.Backend)}
	}
	switch t.Backend {
	case domain.TrackerFirestore:
		if t.FirestoreProject == "" {
			return &domain.ConfigError{Field: keyFirestoreProject, Reason: "required for the firestore tracker"}
		}
	case domain.TrackerPostgres:
		if t.PostgresDSN == "" {
			return &domain.ConfigError{Field: keyPostgresDSN, Reason: "required for the postgres tracker"}
		}
	case domain.TrackerRedis:
		if t.RedisAddr == "" {
			return &domain.ConfigError{Field: keyRedisAddr, Reason: "required for the redis tracker"}
		}
	case domain.TrackerMongo:
		if t.MongoURI == "" {
			return &domain.ConfigError{Field: keyMongoURI, Reason: "required for the mongo tracker"}
		}
	}
	return nil
}

// getBackends returns backend settings in llm.order, skipping unknown and
// repeated providers.
func (s *SettingsService) getBackends() []domain.BackendSettings {
	order := s.configStore.GetStringSlice(keyLLMOrder)
	if len(order) == 0 {
		for _, p := range domain.DefaultBackendOrder() {
			order = append(order, p.String())
		}
	}

	models := domain.DefaultGenerationModels()
	seen := make(map[domain.GenerationProvider]bool)
	var backends []domain.BackendSettings
	for _, name := range order {
		p := domain.GenerationProvider(strings.ToLower(strings.TrimSpace(name)))
		if !p.IsValid() || seen[p] {
			continue
		}
		seen[p] = true

		backends = append(backends, domain.BackendSettings{
			Provider:  p,
			Model:     s.getString(backendKey(p, "model"), models[p]),
			BaseURL:   s.getString(backendKey(p, "base_url"), ""),
			APIKey:    s.getString(backendKey(p, "api_key"), ""),
			ProjectID: s.getString(backendKey(p, "project_id"), ""),
			Region:    s.getString(backendKey(p, "region"), ""),
			Timeout:   s.getSeconds(backendKey(p, "timeout_seconds"), 0),
		})
	}
	return backends
}

func backendKey(p domain.GenerationProvider, field string) string {
	return "llm." + p.String() + "." + field
}

// Helper methods for reading config with defaults. The environment wins over
// the config store.

func (s *SettingsService) env(key string) string {
	for name, k := range envOverrides {
		if k == key {
			if val := strings.TrimSpace(s.getenv(name)); val != "" {
				return val
			}
		}
	}
	return ""
}

func (s *SettingsService) getString(key, defaultVal string) string {
	if val := s.env(key); val != "" {
		return val
	}
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if val := s.env(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	val := s.configStore.GetFloat(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getSeconds(key string, defaultVal time.Duration) time.Duration {
	return s.getDuration(key, time.Second, defaultVal)
}

func (s *SettingsService) getDuration(key string, unit, defaultVal time.Duration) time.Duration {
	n := s.getInt(key, 0)
	if n <= 0 {
		return defaultVal
	}
	return time.Duration(n) * unit
}

func parseValue(key, str string) (any, error) {
	switch {
	case slices.Contains(intKeys, key):
		n, err := strconv.Atoi(strings.TrimSpace(str))
		if err != nil {
			return nil, fmt.Errorf("%s must be an integer: %w", key, domain.ErrInvalidInput)
		}
		return n, nil
	case slices.Contains(floatKeys, key):
		f, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
		if err != nil {
			return nil, fmt.Errorf("%s must be a number: %w", key, domain.ErrInvalidInput)
		}
		return f, nil
	case slices.Contains(boolKeys, key):
		b, err := strconv.ParseBool(strings.TrimSpace(str))
		if err != nil {
			return nil, fmt.Errorf("%s must be true or false: %w", key, domain.ErrInvalidInput)
		}
		return b, nil
	case slices.Contains(listKeys, key):
		var items []string
		for _, item := range strings.Split(str, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return items, nil
	}
	return str, nil
}

func isSecretKey(key string) bool {
	return slices.Contains(secretKeys, key) || strings.HasSuffix(key, ".api_key")
}
