package commands

import (
	"context"
	"fmt"
	"os"
	"path"

	"github.com/spf13/cobra"
)

var (
	getOut     string
	getVersion int
)

var getCmd = &cobra.Command{
	Use:   "get <vault-path>",
	Short: "Download and decrypt a file from the vault",
	Long: `Fetch a file's encrypted body from the vault, decrypt it locally,
and write it to disk. --version downloads a retained past version
(numbered oldest-first, as shown by "cipherboxctl versions list"); past
versions are written under the file's current name.

Examples:
  cipherboxctl get /documents/report.pdf
  cipherboxctl get /documents/report.pdf --out ./report-copy.pdf
  cipherboxctl get /documents/report.pdf --version 2`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

func init() {
	getCmd.Flags().StringVar(&getOut, "out", "", "local output path (default: the file's name in the current directory)")
	getCmd.Flags().IntVar(&getVersion, "version", 0, "past version to download, numbered oldest-first (0 = current)")
}

func runGet(cmd *cobra.Command, args []string) error {
	printer, err := newPrinter()
	if err != nil {
		return err
	}

	dir, base := splitVaultPath(args[0])

	ctx := context.Background()
	sess, cleanup, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	parent, err := resolveFolder(ctx, sess, dir)
	if err != nil {
		return err
	}
	fileID, err := findFile(parent, base)
	if err != nil {
		return err
	}
	file, err := sess.OpenFile(ctx, parent.ID, fileID)
	if err != nil {
		return err
	}

	var plaintext []byte
	if getVersion == 0 {
		plaintext, err = sess.FetchAndDownload(ctx, file, nil, nil)
	} else {
		var index int
		index, err = versionIndexFromLabel(file, getVersion)
		if err != nil {
			return err
		}
		plaintext, err = sess.FetchAndDownloadVersion(ctx, file, index)
	}
	if err != nil {
		return err
	}

	out := getOut
	if out == "" {
		out = path.Base(base)
	}
	if err := os.WriteFile(out, plaintext, 0600); err != nil {
		return fmt.Errorf("cannot write output file: %w", err)
	}

	printer.Success(fmt.Sprintf("Wrote %s (%d bytes)", out, len(plaintext)))
	return nil
}
