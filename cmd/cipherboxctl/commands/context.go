package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cipherbox-vault/core/internal/cli/credentials"
	"github.com/cipherbox-vault/core/internal/cli/output"
)

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Manage façade connection contexts",
	Long: `Manage named connection contexts. A context records a façade server
URL and caches the vault's resolved root pointer, so switching between
vaults (or façade deployments) is one command. The current context's
server URL overrides facade.base_url from the config file.`,
}

var contextListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved contexts",
	RunE:  runContextList,
}

var contextSetCmd = &cobra.Command{
	Use:   "set <name> <server-url>",
	Short: "Create or update a context and make it current",
	Args:  cobra.ExactArgs(2),
	RunE:  runContextSet,
}

var contextUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Switch to a saved context",
	Args:  cobra.ExactArgs(1),
	RunE:  runContextUse,
}

var contextDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a saved context",
	Args:  cobra.ExactArgs(1),
	RunE:  runContextDelete,
}

func init() {
	contextCmd.AddCommand(contextListCmd)
	contextCmd.AddCommand(contextSetCmd)
	contextCmd.AddCommand(contextUseCmd)
	contextCmd.AddCommand(contextDeleteCmd)
	rootCmd.AddCommand(contextCmd)
}

func runContextList(cmd *cobra.Command, args []string) error {
	printer, err := newPrinter()
	if err != nil {
		return err
	}
	store, err := credentials.NewStore()
	if err != nil {
		return err
	}

	current := store.GetCurrentContextName()
	table := output.NewTableData("", "NAME", "SERVER", "VAULT OPEN")
	for _, name := range store.ListContexts() {
		ctx, err := store.GetContext(name)
		if err != nil {
			continue
		}
		marker := " "
		if name == current {
			marker = "*"
		}
		open := "no"
		if ctx.IsOpen() {
			open = "yes"
		}
		table.AddRow(marker, name, ctx.ServerURL, open)
	}
	return output.PrintTable(printer.Writer(), table)
}

func runContextSet(cmd *cobra.Command, args []string) error {
	printer, err := newPrinter()
	if err != nil {
		return err
	}
	store, err := credentials.NewStore()
	if err != nil {
		return err
	}
	if err := store.SetContext(args[0], &credentials.Context{ServerURL: args[1]}); err != nil {
		return err
	}
	if err := store.UseContext(args[0]); err != nil {
		return err
	}
	printer.Success(fmt.Sprintf("Context %q now points at %s", args[0], args[1]))
	return nil
}

func runContextUse(cmd *cobra.Command, args []string) error {
	printer, err := newPrinter()
	if err != nil {
		return err
	}
	store, err := credentials.NewStore()
	if err != nil {
		return err
	}
	if err := store.UseContext(args[0]); err != nil {
		return err
	}
	printer.Success("Switched to context " + args[0])
	return nil
}

func runContextDelete(cmd *cobra.Command, args []string) error {
	printer, err := newPrinter()
	if err != nil {
		return err
	}
	store, err := credentials.NewStore()
	if err != nil {
		return err
	}
	if err := store.DeleteContext(args[0]); err != nil {
		return err
	}
	printer.Success("Deleted context " + args[0])
	return nil
}

// applyContextServerURL returns the current saved context's server URL,
// falling back to baseURL when no context is set.
func applyContextServerURL(baseURL string) string {
	store, err := credentials.NewStore()
	if err != nil {
		return baseURL
	}
	ctx, err := store.GetCurrentContext()
	if err != nil || ctx.ServerURL == "" {
		return baseURL
	}
	return ctx.ServerURL
}

// rememberRootPointer caches the opened vault's root pointer id in the
// current context. Failures are ignored; the cache is an optimization.
func rememberRootPointer(rootPointerID string) {
	store, err := credentials.NewStore()
	if err != nil {
		return
	}
	if _, err := store.GetCurrentContext(); err != nil {
		return
	}
	_ = store.UpdateRootPointer(rootPointerID, time.Now())
}
