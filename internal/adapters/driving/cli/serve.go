package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/anynomousfriend/Fathom-0x/internal/adapters/driving/httpapi"
	"github.com/anynomousfriend/Fathom-0x/internal/adapters/driving/inbox"
	"github.com/anynomousfriend/Fathom-0x/internal/core/domain"
	"github.com/anynomousfriend/Fathom-0x/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the oracle",
	Long: `Run the oracle until interrupted.

Queries are discovered from every enabled source:
  - ledger events (poll.enabled, keys from the keyring)
  - the inbox directory (inbox.dir)
  - the HTTP API (http.addr or --http)

In-flight queries finish before the process exits.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("http", "", "HTTP API listen address, overrides http.addr (e.g. :8000)")
	serveCmd.Flags().String("inbox", "", "inbox directory, overrides inbox.dir")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	n, err := buildNode(ctx)
	if err != nil {
		return err
	}
	defer n.Close() //nolint:errcheck

	httpAddr, _ := cmd.Flags().GetString("http") //nolint:errcheck
	if httpAddr == "" {
		httpAddr = n.Settings.Sources.HTTPAddr
	}
	if dir, _ := cmd.Flags().GetString("inbox"); dir != "" { //nolint:errcheck
		n.Sources = append(n.Sources, inbox.New(dir))
	}

	if len(n.Sources) == 0 && httpAddr == "" {
		return errors.New("no query sources enabled: set poll.enabled, inbox.dir or http.addr")
	}

	report := n.Health.Check(ctx)
	cmd.Printf("Fathom oracle %s\n", version)
	cmd.Printf("  Signer:     %s\n", n.Signer)
	cmd.Printf("  Blob store: %s\n", report.BlobStore)
	cmd.Printf("  Tracker:    %s\n", report.Tracker)
	for _, s := range n.Sources {
		cmd.Printf("  Source:     %s\n", s.Name())
	}
	if httpAddr != "" {
		cmd.Printf("  HTTP API:   %s\n", httpAddr)
	}
	for _, p := range report.Problems {
		logger.Warn("%s", p)
	}

	g, gctx := errgroup.WithContext(ctx)
	if len(n.Sources) > 0 {
		g.Go(func() error {
			return n.Runner.Run(gctx, n.Sources...)
		})
	}
	if httpAddr != "" {
		server, err := httpapi.NewServer(n.Pipeline, n.Health)
		if err != nil {
			return err
		}
		g.Go(func() error {
			return server.ListenAndServe(gctx, httpAddr)
		})
	}

	err = g.Wait()
	if ctx.Err() != nil {
		// Interrupted: a clean shutdown.
		logger.Info("oracle stopped")
		return nil
	}
	if err != nil {
		return fmt.Errorf("oracle stopped: %w", err)
	}
	return nil
}

// resultLine renders a pipeline result for terminal output.
func resultLine(r *domain.PipelineResult) string {
	switch r.State {
	case domain.StateRecorded:
		return fmt.Sprintf("query %s answered, transaction %s", r.QueryID, r.TransactionDigest)
	case domain.StateSkippedDuplicate:
		return fmt.Sprintf("query %s already answered, skipped", r.QueryID)
	default:
		return fmt.Sprintf("query %s failed at %s (%s): %v", r.QueryID, r.FailedAt, r.Failure, r.Err)
	}
}
