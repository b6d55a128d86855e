package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anynomousfriend/Fathom-0x/internal/core/domain"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show node health and configured backends",
	Long: `Report whether the oracle is ready: signing key, ledger identifiers and
generation backends. Exits non-zero when the node is degraded.`,
	RunE: runHealth,
}

func init() {
	healthCmd.Flags().Bool("json", false, "print the report as JSON")
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, _ []string) error {
	health, closeFn, err := buildHealth()
	if err != nil {
		return err
	}
	defer closeFn() //nolint:errcheck

	report := health.Check(cmd.Context())

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("encoding report: %w", err)
		}
	} else {
		printHealth(cmd, report)
	}

	if report.Status != domain.HealthOK {
		return errors.New("node is degraded")
	}
	return nil
}

func printHealth(cmd *cobra.Command, r *domain.HealthReport) {
	cmd.Printf("Status:     %s\n", r.Status)
	if r.Version != "" {
		cmd.Printf("Version:    %s\n", r.Version)
	}
	signer := r.Signer
	if signer == "" {
		signer = "(not set)"
	}
	cmd.Printf("Signer:     %s\n", signer)
	cmd.Printf("Blob store: %s\n", r.BlobStore)
	cmd.Printf("Tracker:    %s\n", r.Tracker)
	cmd.Printf("Ledger:     %s\n", configuredLabel(r.Ledger))
	cmd.Println()
	cmd.Println("Backends (priority order):")
	for i, b := range r.Backends {
		cmd.Printf("  %d. %-10s %-40s %s\n", i+1, b.Name, b.Model, configuredLabel(b.Configured))
	}
	if len(r.Problems) > 0 {
		cmd.Println()
		cmd.Println("Problems:")
		for _, p := range r.Problems {
			cmd.Printf("  - %s\n", p)
		}
	}
}

func configuredLabel(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}
