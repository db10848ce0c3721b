package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

var mvCmd = &cobra.Command{
	Use:   "mv <source> <destination>",
	Short: "Move or rename a file or folder",
	Long: `Move a file or folder to another vault folder, rename it in place,
or both. When the destination names an existing folder, the source is
moved into it under its current name; otherwise the destination's base
name becomes the new name.

Moves write the destination folder before the source folder, so a crash
mid-operation leaves the object reachable from both parents rather than
from neither.

Examples:
  cipherboxctl mv /inbox/report.pdf /documents/report.pdf
  cipherboxctl mv /documents/report.pdf /documents/q3-report.pdf
  cipherboxctl mv /inbox/photos /archive`,
	Args: cobra.ExactArgs(2),
	RunE: runMv,
}

func runMv(cmd *cobra.Command, args []string) error {
	printer, err := newPrinter()
	if err != nil {
		return err
	}

	srcDir, srcBase := splitVaultPath(args[0])

	ctx := context.Background()
	sess, cleanup, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	source, err := resolveFolder(ctx, sess, srcDir)
	if err != nil {
		return err
	}
	childID, err := findChild(source, srcBase)
	if err != nil {
		return err
	}

	now := time.Now().UnixMilli()

	// Destination naming an existing folder means "move into it".
	if dest, err := resolveFolder(ctx, sess, args[1]); err == nil {
		if dest.ID == source.ID {
			printer.Success("Nothing to do")
			return nil
		}
		if err := sess.Move(ctx, childID, source.ID, dest.ID, nil, now); err != nil {
			return err
		}
		printer.Success("Moved " + args[0] + " to " + args[1])
		return nil
	}

	destDir, destBase := splitVaultPath(args[1])
	dest, err := resolveFolder(ctx, sess, destDir)
	if err != nil {
		return err
	}

	if dest.ID == source.ID {
		if err := sess.Rename(ctx, source.ID, childID, destBase, now); err != nil {
			return err
		}
		printer.Success("Renamed " + args[0] + " to " + destBase)
		return nil
	}

	newName := destBase
	if err := sess.Move(ctx, childID, source.ID, dest.ID, &newName, now); err != nil {
		return err
	}
	printer.Success("Moved " + args[0] + " to " + args[1])
	return nil
}
