package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/cipherbox-vault/core/internal/bytesize"
	"github.com/cipherbox-vault/core/internal/cli/output"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show vault status and quota usage",
	Long: `Show the opened vault's root pointer and pin quota usage (used and
limit bytes). Requires the identity key.`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	quota, err := sess.Quota(ctx)
	if err != nil {
		return err
	}

	if printer.Format() != output.FormatTable {
		return printer.Print(map[string]any{
			"rootPointer": sess.Root.RootIpnsName,
			"usedBytes":   quota.UsedBytes,
			"limitBytes":  quota.LimitBytes,
		})
	}

	return output.SimpleTable(printer.Writer(), [][2]string{
		{"Root pointer", sess.Root.RootIpnsName},
		{"Quota used", bytesize.ByteSize(quota.UsedBytes).String()},
		{"Quota limit", bytesize.ByteSize(quota.LimitBytes).String()},
	})
}
