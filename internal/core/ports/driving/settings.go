package driving

import "github.com/anynomousfriend/Fathom-0x/internal/core/domain"

// SettingsService manages oracle settings.
type SettingsService interface {
	// Get retrieves current settings: defaults, then the config file, then
	// environment overrides.
	Get() (*domain.OracleSettings, error)

	// Set stores a single config key and persists the file.
	Set(key string, value any) error

	// Lookup returns the stored value of key as text. Secret keys are
	// reported as "[set]" and never returned.
	Lookup(key string) (string, bool)

	// Validate checks that the settings can run the pipeline.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.OracleSettings
}
