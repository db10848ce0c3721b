package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cipherbox-vault/core/internal/cli/prompt"
)

var rmYes bool

var rmCmd = &cobra.Command{
	Use:   "rm <vault-path>",
	Short: "Delete a file or folder",
	Long: `Delete a file, or a folder and its entire subtree. The current and
version bodies of every deleted file are released against the quota;
file and folder metadata blocks are not unpinned. Deletion is
permanent: there is no trash, and the version chain is released with the
file.

Examples:
  cipherboxctl rm /inbox/report.pdf
  cipherboxctl rm /archive/2019 --yes`,
	Args: cobra.ExactArgs(1),
	RunE: runRm,
}

func init() {
	rmCmd.Flags().BoolVarP(&rmYes, "yes", "y", false, "skip the confirmation prompt")
}

func runRm(cmd *cobra.Command, args []string) error {
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

	isFile := false
	childID := ""
	for _, c := range parent.Children {
		if c.Name == base {
			if c.IsFile() {
				isFile = true
				childID = c.File.ID
			} else {
				childID = c.Folder.ID
			}
			break
		}
	}
	if childID == "" {
		return fmt.Errorf("no such file or folder: %s", base)
	}

	if !rmYes {
		var confirmed bool
		if isFile {
			confirmed, err = prompt.Confirm(fmt.Sprintf("Permanently delete file %s and its version history?", args[0]), false)
		} else {
			// Folder deletes take the whole subtree with them; make the
			// user type the folder name.
			confirmed, err = prompt.ConfirmDanger(fmt.Sprintf("Permanently delete folder %s and its entire subtree?", args[0]), base)
		}
		if err != nil || !confirmed {
			printer.Warning("Aborted")
			return nil
		}
	}

	if isFile {
		err = sess.DeleteFile(ctx, parent.ID, childID)
	} else {
		err = sess.DeleteFolder(ctx, parent.ID, childID)
	}
	if err != nil {
		return err
	}

	printer.Success("Deleted " + args[0])
	return nil
}
