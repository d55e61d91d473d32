package config

import (
	"github.com/marmos91/ephemera/internal/cli/output"
	"github.com/marmos91/ephemera/pkg/config"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	Long: `Display the effective configuration: file values, environment
overrides and defaults merged.

By default outputs YAML format. Use --output json for JSON.

Examples:
  # Show the effective configuration
  ephemera config show

  # Show a specific config file as JSON
  ephemera config show --config ./ephemera.yaml -o json`,
	RunE: runConfigShow,
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath(cmd))
	if err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("output")
	if format == "json" {
		return output.PrintJSON(cmd.OutOrStdout(), cfg)
	}
	return output.PrintYAML(cmd.OutOrStdout(), cfg)
}
