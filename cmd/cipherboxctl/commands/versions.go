package commands

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/cipherbox-vault/core/internal/bytesize"
	"github.com/cipherbox-vault/core/internal/cli/output"
	"github.com/cipherbox-vault/core/pkg/fileobject"
	"github.com/cipherbox-vault/core/pkg/session"
)

var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "Manage a file's retained version chain",
}

var versionsListCmd = &cobra.Command{
	Use:   "list <vault-path>",
	Short: "List a file's retained past versions",
	Long: `List the retained past versions of a file, numbered oldest-first
(v1 is the oldest). The current body is not a version entry.`,
	Args: cobra.ExactArgs(1),
	RunE: runVersionsList,
}

var versionsRestoreCmd = &cobra.Command{
	Use:   "restore <vault-path> <version>",
	Short: "Restore a past version to current",
	Long: `Make a retained past version the file's current body. The state
being replaced is itself recorded as the newest version entry, so no
version is lost by restoring.

Examples:
  cipherboxctl versions restore /documents/report.pdf 2`,
	Args: cobra.ExactArgs(2),
	RunE: runVersionsRestore,
}

var versionsRmCmd = &cobra.Command{
	Use:   "rm <vault-path> <version>",
	Short: "Delete one retained past version",
	Long: `Delete a single retained past version and release its pinned body
block. The current body and the other versions are unaffected.`,
	Args: cobra.ExactArgs(2),
	RunE: runVersionsRm,
}

func init() {
	versionsCmd.AddCommand(versionsListCmd)
	versionsCmd.AddCommand(versionsRestoreCmd)
	versionsCmd.AddCommand(versionsRmCmd)
}

// versionIndexFromLabel converts the user-facing oldest-first version
// number (v1…vN) into the newest-first index the version chain stores.
func versionIndexFromLabel(file *fileobject.File, label int) (int, error) {
	n := len(file.Meta.Versions)
	if label < 1 || label > n {
		return 0, fmt.Errorf("no such version v%d (file has %d)", label, n)
	}
	return n - label, nil
}

func openFileAtPath(ctx context.Context, vaultPath string) (*session.Session, *fileobject.File, func(), error) {
	dir, base := splitVaultPath(vaultPath)

	sess, cleanup, err := openSession(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	parent, err := resolveFolder(ctx, sess, dir)
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}
	fileID, err := findFile(parent, base)
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}
	file, err := sess.OpenFile(ctx, parent.ID, fileID)
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}
	return sess, file, cleanup, nil
}

func runVersionsList(cmd *cobra.Command, args []string) error {
	printer, err := newPrinter()
	if err != nil {
		return err
	}

	ctx := context.Background()
	_, file, cleanup, err := openFileAtPath(ctx, args[0])
	if err != nil {
		return err
	}
	defer cleanup()

	versions := file.Meta.Versions
	if printer.Format() != output.FormatTable {
		type listing struct {
			Label     string `json:"label" yaml:"label"`
			Cid       string `json:"cid" yaml:"cid"`
			Size      int64  `json:"size" yaml:"size"`
			Timestamp int64  `json:"timestamp" yaml:"timestamp"`
			Mode      string `json:"encryptionMode" yaml:"encryptionMode"`
		}
		entries := make([]listing, 0, len(versions))
		for i, v := range versions {
			entries = append(entries, listing{
				Label:     fmt.Sprintf("v%d", len(versions)-i),
				Cid:       v.Cid,
				Size:      v.Size,
				Timestamp: v.Timestamp,
				Mode:      string(v.EncryptionMode),
			})
		}
		return printer.Print(entries)
	}

	table := output.NewTableData("VERSION", "SIZE", "MODE", "CAPTURED")
	for i, v := range versions {
		table.AddRow(
			fmt.Sprintf("v%d", len(versions)-i),
			bytesize.ByteSize(v.Size).String(),
			string(v.EncryptionMode),
			time.UnixMilli(v.Timestamp).Format(time.RFC3339),
		)
	}
	return output.PrintTable(printer.Writer(), table)
}

func runVersionsRestore(cmd *cobra.Command, args []string) error {
	printer, err := newPrinter()
	if err != nil {
		return err
	}
	label, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("version must be a number: %q", args[1])
	}

	ctx := context.Background()
	sess, file, cleanup, err := openFileAtPath(ctx, args[0])
	if err != nil {
		return err
	}
	defer cleanup()

	index, err := versionIndexFromLabel(file, label)
	if err != nil {
		return err
	}
	if err := sess.Restore(ctx, file, index, time.Now().UnixMilli()); err != nil {
		return err
	}
	printer.Success(fmt.Sprintf("Restored %s to v%d", args[0], label))
	return nil
}

func runVersionsRm(cmd *cobra.Command, args []string) error {
	printer, err := newPrinter()
	if err != nil {
		return err
	}
	label, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("version must be a number: %q", args[1])
	}

	ctx := context.Background()
	sess, file, cleanup, err := openFileAtPath(ctx, args[0])
	if err != nil {
		return err
	}
	defer cleanup()

	index, err := versionIndexFromLabel(file, label)
	if err != nil {
		return err
	}
	if err := sess.DeleteVersion(ctx, file, index); err != nil {
		return err
	}
	printer.Success(fmt.Sprintf("Deleted v%d of %s", label, args[0]))
	return nil
}
