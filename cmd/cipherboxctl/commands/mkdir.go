package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

var mkdirCmd = &cobra.Command{
	Use:   "mkdir <path>",
	Short: "Create a vault folder",
	Long: `Create a new, empty folder at the given vault path. The parent
folder must already exist.

Examples:
  cipherboxctl mkdir /photos
  cipherboxctl mkdir /photos/2026`,
	Args: cobra.ExactArgs(1),
	RunE: runMkdir,
}

func runMkdir(cmd *cobra.Command, args []string) error {
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

	if _, err := sess.CreateFolder(ctx, parent.ID, base, time.Now().UnixMilli()); err != nil {
		return err
	}

	printer.Success("Created folder " + args[0])
	return nil
}
