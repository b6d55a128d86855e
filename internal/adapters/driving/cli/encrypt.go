package cli

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/anynomousfriend/Fathom-0x/internal/adapters/driven/config/file"
	"github.com/anynomousfriend/Fathom-0x/internal/adapters/driven/crypto/aescbc"
	"github.com/anynomousfriend/Fathom-0x/internal/node"
)

var encryptCmd = &cobra.Command{
	Use:   "encrypt [file]",
	Short: "Encrypt a document for upload",
	Long: `Encrypt a document with AES-256-CBC under a fresh random key and IV.

The ciphertext is written to --out (default <file>.enc) for upload to Walrus.
The key and IV are printed once as hex; keep them private and share them only
with the oracle. With --blob-id the key can also be stored in the oracle's
keyring (--keyring) and the ciphertext mirrored to Cloud Storage (--mirror).`,
	Args: cobra.ExactArgs(1),
	RunE: runEncrypt,
}

func init() {
	encryptCmd.Flags().StringP("out", "o", "", "ciphertext output path")
	encryptCmd.Flags().String("blob-id", "", "blob id the ciphertext is stored under")
	encryptCmd.Flags().Bool("keyring", false, "store key and iv in the keyring under --blob-id")
	encryptCmd.Flags().Bool("mirror", false, "upload the ciphertext to the GCS bucket under --blob-id")
	encryptCmd.Flags().Bool("no-print-key", false, "do not print the key and iv")
	rootCmd.AddCommand(encryptCmd)
}

func runEncrypt(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	out, _ := flags.GetString("out")
	blobID, _ := flags.GetString("blob-id")
	toKeyring, _ := flags.GetBool("keyring")
	mirror, _ := flags.GetBool("mirror")
	noPrint, _ := flags.GetBool("no-print-key")

	if (toKeyring || mirror) && blobID == "" {
		return errors.New("--keyring and --mirror require --blob-id")
	}
	if out == "" {
		out = args[0] + ".enc"
	}

	plaintext, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading document: %w", err)
	}
	defer clear(plaintext)

	key, iv, err := aescbc.GenerateKey()
	if err != nil {
		return err
	}
	defer clear(key)
	defer clear(iv)

	ciphertext, err := aescbc.Encrypt(plaintext, key, iv)
	if err != nil {
		return fmt.Errorf("encrypting: %w", err)
	}
	if err := os.WriteFile(out, ciphertext, 0600); err != nil {
		return fmt.Errorf("writing ciphertext: %w", err)
	}
	cmd.Printf("Ciphertext: %s (%d bytes)\n", out, len(ciphertext))

	if toKeyring || mirror {
		if err := requireSettings(); err != nil {
			return err
		}
		settings, err := settingsService.Get()
		if err != nil {
			return fmt.Errorf("loading settings: %w", err)
		}

		if toKeyring {
			keyring, err := file.NewKeyring(settings.Sources.KeyringPath)
			if err != nil {
				return fmt.Errorf("opening keyring: %w", err)
			}
			if err := keyring.Add(blobID, key, iv); err != nil {
				return fmt.Errorf("storing key: %w", err)
			}
			cmd.Printf("Key stored in %s\n", keyring.Path())
		}

		if mirror {
			store, err := node.OpenGCS(cmd.Context(), *settings)
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck
			if err := store.Put(cmd.Context(), blobID, ciphertext); err != nil {
				return fmt.Errorf("mirroring ciphertext: %w", err)
			}
			cmd.Printf("Mirrored to gs://%s\n", settings.GCS.Bucket)
		}
	}

	if !noPrint {
		cmd.Println()
		cmd.Printf("Key: %s\n", hex.EncodeToString(key))
		cmd.Printf("IV:  %s\n", hex.EncodeToString(iv))
	}
	return nil
}
