// Package config implements configuration management subcommands.
package config

import (
	"github.com/spf13/cobra"
)

// Cmd is the config subcommand.
var Cmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
	Long: `Manage the ephemera tool configuration.

The configuration is read from $XDG_CONFIG_HOME/ephemera/config.yaml (or
--config) and every key can be overridden with EPHEMERA_<SECTION>_<KEY>
environment variables, e.g. EPHEMERA_LOGGING_LEVEL=DEBUG.

Subcommands:
  init      Write a configuration file with default values
  validate  Validate configuration file
  show      Display current configuration
  schema    Generate JSON schema for IDE/validation`,
}

func init() {
	Cmd.AddCommand(initCmd)
	Cmd.AddCommand(validateCmd)
	Cmd.AddCommand(showCmd)
	Cmd.AddCommand(schemaCmd)
}

// configPath returns the --config value inherited from the root command.
func configPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	return path
}
