package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cipherbox-vault/core/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Load and validate the configuration file, reporting the first
validation failure if any.

Examples:
  cipherboxctl config validate
  cipherboxctl config validate --config /etc/cipherbox/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	if _, err := config.MustLoad(configPath); err != nil {
		return err
	}

	fmt.Println("Configuration is valid")
	return nil
}
