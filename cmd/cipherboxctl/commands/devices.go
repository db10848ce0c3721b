package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cipherbox-vault/core/internal/cli/output"
	"github.com/cipherbox-vault/core/internal/cli/prompt"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Manage the vault's device registry",
}

var devicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered devices",
	Long:  `List every device in the vault's registry: pending, authorized, and revoked.`,
	RunE:  runDevicesList,
}

var devicesRevokeCmd = &cobra.Command{
	Use:   "revoke <device-id>",
	Short: "Revoke a registered device",
	Long: `Mark a device as revoked in the registry. Other sessions observe the
revocation on their next registry poll.`,
	Args: cobra.ExactArgs(1),
	RunE: runDevicesRevoke,
}

var devicesRevokeYes bool

func init() {
	devicesCmd.AddCommand(devicesListCmd)
	devicesCmd.AddCommand(devicesRevokeCmd)
	devicesRevokeCmd.Flags().BoolVarP(&devicesRevokeYes, "yes", "y", false, "skip the confirmation prompt")
}

func runDevicesList(cmd *cobra.Command, args []string) error {
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

	devices, err := sess.ListDevices(ctx)
	if err != nil {
		return err
	}

	if printer.Format() != output.FormatTable {
		return printer.Print(devices)
	}

	table := output.NewTableData("DEVICE ID", "NAME", "PLATFORM", "STATUS", "LAST SEEN")
	for _, d := range devices {
		table.AddRow(
			d.DeviceID[:16]+"…",
			d.Name,
			string(d.Platform),
			string(d.Status),
			time.UnixMilli(d.LastSeenAt).Format(time.RFC3339),
		)
	}
	return output.PrintTable(printer.Writer(), table)
}

func runDevicesRevoke(cmd *cobra.Command, args []string) error {
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

	if !devicesRevokeYes {
		confirmed, err := prompt.Confirm(fmt.Sprintf("Revoke device %s?", args[0]), false)
		if err != nil || !confirmed {
			printer.Warning("Aborted")
			return nil
		}
	}

	if err := sess.RevokeDevice(ctx, args[0], "cipherboxctl", time.Now().UnixMilli()); err != nil {
		return err
	}
	printer.Success("Revoked device " + args[0])
	return nil
}
