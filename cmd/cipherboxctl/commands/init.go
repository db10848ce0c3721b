package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cipherbox-vault/core/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample cipherboxctl configuration file.

By default, the configuration file is created at $XDG_CONFIG_HOME/cipherbox/config.yaml.
Use --config to specify a custom path.

Examples:
  # Initialize with default location
  cipherboxctl init

  # Initialize with custom path
  cipherboxctl init --config /etc/cipherbox/config.yaml

  # Force overwrite existing config
  cipherboxctl init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := GetConfigFile()
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	if _, err := os.Stat(configPath); err == nil && !initForce {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", configPath)
	}

	if err := config.SaveConfig(config.GetDefaultConfig(), configPath); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Set facade.base_url to your CipherBox service endpoint")
	fmt.Printf("  2. Point %s (or --key-file) at your hex-encoded identity key\n", EnvKeyFile)
	fmt.Println("  3. List your vault root with: cipherboxctl ls /")

	return nil
}
