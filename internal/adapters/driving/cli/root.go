// Package cli provides the fathom command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/anynomousfriend/Fathom-0x/internal/adapters/driven/config/file"
	"github.com/anynomousfriend/Fathom-0x/internal/core/ports/driving"
	"github.com/anynomousfriend/Fathom-0x/internal/core/services"
	"github.com/anynomousfriend/Fathom-0x/internal/logger"
	"github.com/anynomousfriend/Fathom-0x/internal/node"
)

// version is set at build time with -ldflags "-X .../cli.version=...".
var version = "dev"

var (
	// settingsService is created from the config directory unless a test
	// has already set it.
	settingsService driving.SettingsService

	// buildNode wires a full oracle from current settings.
	buildNode = defaultBuildNode

	// buildHealth wires only what health reporting needs.
	buildHealth = defaultBuildHealth
)

var (
	flagVerbose   bool
	flagLogJSON   bool
	flagConfigDir string
	flagEnvFile   string
)

var rootCmd = &cobra.Command{
	Use:   "fathom",
	Short: "Confidential document oracle",
	Long: `Fathom answers questions about encrypted documents.

It fetches ciphertext from Walrus, decrypts it in memory, retrieves the most
relevant passages, asks a language model, signs the answer and submits it to
the Sui ledger. Queries are discovered from ledger events, an inbox directory
or the HTTP API.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVar(&flagLogJSON, "log-json", false, "log as JSON")
	pf.StringVar(&flagConfigDir, "config", "", "config directory (default ~/.fathom)")
	pf.StringVar(&flagEnvFile, "env-file", ".env", "dotenv file loaded before reading settings, if present")
}

// Execute runs the root command until ctx is cancelled.
func Execute(ctx context.Context) error {
	defer logger.Sync()
	return rootCmd.ExecuteContext(ctx)
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(flagVerbose)
	logger.SetJSON(flagLogJSON)
	logger.SetOutput(cmd.ErrOrStderr())

	if flagEnvFile != "" {
		if err := godotenv.Load(flagEnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", flagEnvFile, err)
		}
	}

	if settingsService != nil {
		return nil
	}
	store, err := file.NewConfigStore(configDir())
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}
	settingsService = services.NewSettingsService(store, nil)
	return nil
}

// configDir returns the --config directory, or "" for the default.
func configDir() string {
	if flagConfigDir == "" {
		return ""
	}
	return filepath.Clean(flagConfigDir)
}

func requireSettings() error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	return nil
}

func defaultBuildNode(ctx context.Context) (*node.Node, error) {
	if err := requireSettings(); err != nil {
		return nil, err
	}
	if err := settingsService.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w\nRun 'fathom config show' to review settings", err)
	}
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	return node.Build(ctx, *settings, node.Options{Version: version, ConfigDir: configDir()})
}

func defaultBuildHealth() (driving.HealthService, func() error, error) {
	if err := requireSettings(); err != nil {
		return nil, nil, err
	}
	settings, err := settingsService.Get()
	if err != nil {
		return nil, nil, fmt.Errorf("loading settings: %w", err)
	}
	return node.NewHealth(*settings, node.Options{Version: version, ConfigDir: configDir()})
}
