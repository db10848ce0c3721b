package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/cipherbox-vault/core/internal/cli/output"
)

var lsCmd = &cobra.Command{
	Use:   "ls [path]",
	Short: "List a vault folder",
	Long: `List the decrypted contents of a vault folder. Defaults to the
vault root when no path is given.

Examples:
  cipherboxctl ls /
  cipherboxctl ls /photos/2026`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLs,
}

func runLs(cmd *cobra.Command, args []string) error {
	printer, err := newPrinter()
	if err != nil {
		return err
	}

	vaultPath := "/"
	if len(args) == 1 {
		vaultPath = args[0]
	}

	ctx := context.Background()
	sess, cleanup, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	node, err := resolveFolder(ctx, sess, vaultPath)
	if err != nil {
		return err
	}

	if printer.Format() != output.FormatTable {
		type listing struct {
			Name       string `json:"name" yaml:"name"`
			Type       string `json:"type" yaml:"type"`
			ID         string `json:"id" yaml:"id"`
			ModifiedAt int64  `json:"modifiedAt" yaml:"modifiedAt"`
		}
		entries := make([]listing, 0, len(node.Children))
		for _, c := range node.Children {
			e := listing{Name: c.Name, Type: "folder"}
			if c.IsFile() {
				e.Type = "file"
				e.ID = c.File.ID
				e.ModifiedAt = c.File.ModifiedAt
			} else {
				e.ID = c.Folder.ID
				e.ModifiedAt = c.Folder.ModifiedAt
			}
			entries = append(entries, e)
		}
		return printer.Print(entries)
	}

	table := output.NewTableData("NAME", "TYPE", "MODIFIED")
	for _, c := range node.Children {
		if c.IsFile() {
			table.AddRow(c.Name, "file", time.UnixMilli(c.File.ModifiedAt).Format(time.RFC3339))
		} else {
			table.AddRow(c.Name, "folder", time.UnixMilli(c.Folder.ModifiedAt).Format(time.RFC3339))
		}
	}
	return output.PrintTable(printer.Writer(), table)
}
