package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the vault's offline recovery bundle",
	Long: `Write the vault recovery bundle: the root pointer name and the
still-wrapped root keys, usable by a recovery tool that holds the vault
identity key. The bundle contains no plaintext key material and is safe
to store offline; it is useless without the identity key.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "cipherbox-vault-export.json", "output path for the recovery bundle")
}

func runExport(cmd *cobra.Command, args []string) error {
	printer, err := newPrinter()
	if err != nil {
		return err
	}

	ctx := context.Background()
	sess, cleanup, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	bundle := sess.Export()
	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(exportOut, data, 0600); err != nil {
		return fmt.Errorf("cannot write recovery bundle: %w", err)
	}

	printer.Success("Wrote recovery bundle to " + exportOut)
	return nil
}
