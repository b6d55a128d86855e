package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anynomousfriend/Fathom-0x/internal/adapters/driven/config/file"
	"github.com/anynomousfriend/Fathom-0x/internal/core/domain"
)

// readSecret reads a value without echo. Replaced in tests.
var readSecret = readPassword

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Answer one query and submit it",
	Long: `Run the full pipeline once for a single query.

Key material is never accepted as a flag. Use --keyring to read it from the
keyring, or enter it at the hidden prompt as hex.

Examples:
  fathom query --id 0xabc --blob <blob-id> --question "What was Q3 revenue?" --keyring
  fathom query --id 0xabc --blob <blob-id> --question "Who signed?"`,
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().String("id", "", "on-ledger query object id (required)")
	queryCmd.Flags().String("blob", "", "document blob id (required)")
	queryCmd.Flags().String("question", "", "question to answer (required)")
	queryCmd.Flags().Bool("keyring", false, "read key and iv from the keyring")
	queryCmd.Flags().Bool("json", false, "print the result as JSON")
	_ = queryCmd.MarkFlagRequired("id")
	_ = queryCmd.MarkFlagRequired("blob")
	_ = queryCmd.MarkFlagRequired("question")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	flags := cmd.Flags()
	queryID, _ := flags.GetString("id")
	blobID, _ := flags.GetString("blob")
	question, _ := flags.GetString("question")
	useKeyring, _ := flags.GetBool("keyring")
	asJSON, _ := flags.GetBool("json")

	n, err := buildNode(ctx)
	if err != nil {
		return err
	}
	defer n.Close() //nolint:errcheck

	var key, iv []byte
	if useKeyring {
		keyring := n.Keyring
		if keyring == nil {
			keyring, err = file.NewKeyring(n.Settings.Sources.KeyringPath)
			if err != nil {
				return fmt.Errorf("opening keyring: %w", err)
			}
		}
		key, iv, err = keyring.Resolve(ctx, blobID)
		if err != nil {
			return fmt.Errorf("resolving key for %s: %w", blobID, err)
		}
	} else {
		key, iv, err = promptKeyMaterial(cmd)
		if err != nil {
			return err
		}
	}

	result := n.Pipeline.Process(ctx, domain.QueryRequest{
		QueryID:        queryID,
		DocumentBlobID: blobID,
		Question:       question,
		DecryptionKey:  key,
		IV:             iv,
	})

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("encoding result: %w", err)
		}
	} else {
		printResult(cmd, result)
	}

	if !result.Succeeded() && result.State != domain.StateSkippedDuplicate {
		return errors.New(resultLine(result))
	}
	return nil
}

func promptKeyMaterial(cmd *cobra.Command) (key, iv []byte, err error) {
	cmd.Print("Document key (hex): ")
	keyHex := readSecret()
	cmd.Println()
	key, err = domain.DecodeKeyHex("key", keyHex)
	if err != nil {
		return nil, nil, err
	}

	cmd.Print("IV (hex): ")
	ivHex := readSecret()
	cmd.Println()
	iv, err = domain.DecodeKeyHex("iv", ivHex)
	if err != nil {
		clear(key)
		return nil, nil, err
	}
	return key, iv, nil
}

func printResult(cmd *cobra.Command, r *domain.PipelineResult) {
	cmd.Println(resultLine(r))
	if r.Answer == nil {
		return
	}
	cmd.Println()
	cmd.Println(r.Answer.Text)
	cmd.Println()
	cmd.Printf("Backend: %s  Chunks used: %d  Document length: %d\n",
		r.Answer.Backend, r.Answer.ChunksUsed, r.Answer.DocumentLength)
	if r.Attestation != nil {
		cmd.Printf("Attestation: %s\n", r.Attestation.HashHex())
	}
}
