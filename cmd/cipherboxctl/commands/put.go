package commands

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/cipherbox-vault/core/pkg/vaultmeta"
)

var (
	putMode  string
	putForce bool
)

var putCmd = &cobra.Command{
	Use:   "put <local-file> <vault-path>",
	Short: "Upload a file into the vault",
	Long: `Encrypt a local file and upload it to the given vault path. If the
vault path already names a file, its body is replaced and the previous
body is retained in the file's version chain (subject to the version
cooldown; --force-version always records a version).

The encryption mode defaults to GCM (authenticated). CTR is for large
media bodies read by ranged streaming; their integrity is covered by the
signed pointer chain instead of an AEAD tag.

Examples:
  cipherboxctl put ./report.pdf /documents/report.pdf
  cipherboxctl put --mode CTR ./movie.mp4 /media/movie.mp4
  cipherboxctl put --force-version ./report.pdf /documents/report.pdf`,
	Args: cobra.ExactArgs(2),
	RunE: runPut,
}

func init() {
	putCmd.Flags().StringVar(&putMode, "mode", "GCM", "encryption mode: GCM or CTR")
	putCmd.Flags().BoolVar(&putForce, "force-version", false, "record a version entry even inside the cooldown window")
}

func runPut(cmd *cobra.Command, args []string) error {
	printer, err := newPrinter()
	if err != nil {
		return err
	}

	mode := vaultmeta.EncryptionMode(putMode)
	if mode != vaultmeta.EncryptionModeGCM && mode != vaultmeta.EncryptionModeCTR {
		return fmt.Errorf("invalid encryption mode %q (want GCM or CTR)", putMode)
	}

	body, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("cannot read local file: %w", err)
	}
	mimeType := mime.TypeByExtension(filepath.Ext(args[0]))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	dir, base := splitVaultPath(args[1])

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

	now := time.Now().UnixMilli()

	// An existing file at the target path means this is a body update,
	// not a fresh upload.
	if fileID, err := findFile(parent, base); err == nil {
		file, err := sess.OpenFile(ctx, parent.ID, fileID)
		if err != nil {
			return err
		}
		if _, _, err := sess.UpdateBody(ctx, file, body, mode, putForce, now); err != nil {
			return err
		}
		printer.Success(fmt.Sprintf("Updated %s (%d bytes)", args[1], len(body)))
		return nil
	}

	if _, err := sess.Upload(ctx, parent.ID, base, mimeType, body, mode, now); err != nil {
		return err
	}
	printer.Success(fmt.Sprintf("Uploaded %s (%d bytes)", args[1], len(body)))
	return nil
}
