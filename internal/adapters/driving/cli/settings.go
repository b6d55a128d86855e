package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/anynomousfriend/Fathom-0x/internal/core/domain"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage oracle settings",
	Long: `View and change oracle settings.

Settings live in config.toml under the config directory. Environment variables
such as ORACLE_PRIVATE_KEY and GEMINI_API_KEY override the file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print one setting",
	Long:  `Print the effective value of one setting. Secrets print only as [set].`,
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Change one setting",
	Long: `Change one setting and save the config file.

Examples:
  fathom config set sui.package_id 0x1234
  fathom config set llm.order gemini,openai
  fathom config set pipeline.top_k 5`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive setup wizard",
	Long:  `Run an interactive wizard to configure the signer, the ledger and a generation backend.`,
	RunE:  runConfigWizard,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configWizardCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if err := requireSettings(); err != nil {
		return err
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Oracle]")
	cmd.Printf("  Private key: %s\n", secretLabel(settings.PrivateKey))
	cmd.Println()

	cmd.Println("[Storage]")
	cmd.Printf("  Blob store: %s\n", settings.BlobStore)
	switch settings.BlobStore {
	case domain.BlobStoreGCS:
		cmd.Printf("  Bucket: %s\n", orNotSet(settings.GCS.Bucket))
		if settings.GCS.Prefix != "" {
			cmd.Printf("  Prefix: %s\n", settings.GCS.Prefix)
		}
	default:
		cmd.Printf("  Aggregator: %s\n", settings.Walrus.AggregatorURL)
	}
	cmd.Println()

	cmd.Println("[Sui]")
	cmd.Printf("  RPC URL: %s\n", settings.Sui.RPCURL)
	cmd.Printf("  Package: %s\n", orNotSet(settings.Sui.PackageID))
	cmd.Printf("  Config object: %s\n", orNotSet(settings.Sui.ConfigObjectID))
	cmd.Printf("  Gas budget: %d\n", settings.Sui.GasBudget)
	cmd.Println()

	cmd.Println("[Pipeline]")
	cmd.Printf("  Chunks: %d chars, %d overlap, top %d by %s\n",
		settings.Pipeline.ChunkSize, settings.Pipeline.ChunkOverlap, settings.Pipeline.TopK, settings.Pipeline.Scorer)
	cmd.Printf("  Attempts: %d\n", settings.Pipeline.MaxAttempts)
	cmd.Println()

	cmd.Println("[Tracker]")
	cmd.Printf("  Backend: %s\n", settings.Tracker.Backend)
	cmd.Println()

	cmd.Println("[Sources]")
	cmd.Printf("  Ledger events: %s\n", yesNo(settings.Sources.LedgerEvents))
	if settings.Sources.LedgerEvents {
		cmd.Printf("  Poll interval: %s\n", settings.Sources.PollInterval)
	}
	cmd.Printf("  Inbox: %s\n", orNotSet(settings.Sources.InboxDir))
	cmd.Printf("  HTTP API: %s\n", orNotSet(settings.Sources.HTTPAddr))
	cmd.Println()

	cmd.Println("[Generation]")
	for i, b := range settings.Backends {
		status := "configured"
		if !b.IsConfigured() {
			status = "not configured"
		}
		cmd.Printf("  %d. %s, model %s (%s)\n", i+1, b.Provider.Description(), b.Model, status)
		if b.Provider.RequiresAPIKey() && b.APIKey != "" {
			cmd.Printf("     API Key: %s\n", maskAPIKey(b.APIKey))
		}
		if b.Provider.IsLocal() && b.BaseURL != "" {
			cmd.Printf("     Base URL: %s\n", b.BaseURL)
		}
	}
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'fathom config wizard' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	if err := requireSettings(); err != nil {
		return err
	}
	val, ok := settingsService.Lookup(args[0])
	if !ok {
		return fmt.Errorf("%s is not set", args[0])
	}
	cmd.Println(val)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if err := requireSettings(); err != nil {
		return err
	}
	if err := settingsService.Set(args[0], args[1]); err != nil {
		return err
	}
	cmd.Printf("%s updated\n", args[0])
	return nil
}

func runConfigWizard(cmd *cobra.Command, _ []string) error {
	if err := requireSettings(); err != nil {
		return err
	}

	reader := bufio.NewReader(cmd.InOrStdin())

	cmd.Println("Fathom Setup Wizard")
	cmd.Println("===================")
	cmd.Println()

	cmd.Print("Oracle private key (hex, blank keeps current): ")
	if key := readSecret(); key != "" {
		if err := settingsService.Set("oracle.private_key", key); err != nil {
			return fmt.Errorf("failed to save private key: %w", err)
		}
	}
	cmd.Println()

	if err := promptSetting(cmd, reader, "Contract package id", "sui.package_id"); err != nil {
		return err
	}
	if err := promptSetting(cmd, reader, "Config object id", "sui.config_object_id"); err != nil {
		return err
	}
	cmd.Println()

	if err := configureBackend(cmd, reader); err != nil {
		return err
	}

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		return nil
	}
	cmd.Println("Configuration is valid.")
	return nil
}

// promptSetting asks for one value, keeping the current one on blank input.
func promptSetting(cmd *cobra.Command, reader *bufio.Reader, label, key string) error {
	current, _ := settingsService.Lookup(key)
	cmd.Printf("%s [%s]: ", label, current)
	val := readLine(reader)
	if val == "" {
		return nil
	}
	if err := settingsService.Set(key, val); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

// configureBackend sets up one provider and moves it to the front of llm.order.
func configureBackend(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select Generation Backend")
	providers := domain.DefaultBackendOrder()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(providers), 1)
	selected := providers[idx-1]
	prefix := "llm." + selected.String() + "."

	defaultModel := domain.DefaultGenerationModels()[selected]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}
	if err := settingsService.Set(prefix+"model", model); err != nil {
		return fmt.Errorf("failed to save model: %w", err)
	}

	switch {
	case selected.RequiresAPIKey():
		cmd.Print("Enter API key: ")
		apiKey := readSecret()
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
		if err := settingsService.Set(prefix+"api_key", apiKey); err != nil {
			return fmt.Errorf("failed to save API key: %w", err)
		}
	case selected.IsLocal():
		if err := promptSetting(cmd, reader, "Base URL", prefix+"base_url"); err != nil {
			return err
		}
	case selected == domain.ProviderVertex:
		if err := promptSetting(cmd, reader, "Project id", prefix+"project_id"); err != nil {
			return err
		}
		if err := promptSetting(cmd, reader, "Region", prefix+"region"); err != nil {
			return err
		}
	case selected == domain.ProviderBedrock:
		if err := promptSetting(cmd, reader, "Region", prefix+"region"); err != nil {
			return err
		}
	}

	order := []string{selected.String()}
	if current, err := settingsService.Get(); err == nil {
		for _, b := range current.Backends {
			if name := b.Provider.String(); !slices.Contains(order, name) {
				order = append(order, name)
			}
		}
	}
	if err := settingsService.Set("llm.order", strings.Join(order, ",")); err != nil {
		return fmt.Errorf("failed to save backend order: %w", err)
	}

	cmd.Printf("Backend configured: %s (%s)\n\n", selected.Description(), model)
	return nil
}

func secretLabel(s string) string {
	if s == "" {
		return "(not set)"
	}
	return "[set]"
}

func orNotSet(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

//nolint:errcheck // CLI helper, error ignored for UX
func readPassword() string {
	// Try to read password without echo
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
