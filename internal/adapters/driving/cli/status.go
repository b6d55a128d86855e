package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/anynomousfriend/Fathom-0x/internal/core/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status [query-id]",
	Short: "Show whether a query has been answered",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	n, err := buildNode(ctx)
	if err != nil {
		return err
	}
	defer n.Close() //nolint:errcheck

	rec, err := n.Records.Get(ctx, args[0])
	if errors.Is(err, domain.ErrNotFound) {
		cmd.Printf("Query %s has not been answered by this oracle.\n", args[0])
		return nil
	}
	if err != nil {
		return fmt.Errorf("looking up query: %w", err)
	}

	cmd.Printf("Query:       %s\n", rec.QueryID)
	cmd.Printf("Transaction: %s\n", rec.TransactionDigest)
	cmd.Printf("Submitted:   %s\n", rec.SubmittedAt.Local().Format(time.RFC3339))
	return nil
}
