package config

import (
	"fmt"

	"github.com/marmos91/ephemera/pkg/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the ephemera configuration file.

Checks for syntax errors, missing required fields, and invalid values.

Examples:
  # Validate default config
  ephemera config validate

  # Validate specific config file
  ephemera config validate --config ./ephemera.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path := configPath(cmd)
	if path == "" {
		path = config.GetDefaultConfigPath()
	}

	cfg, err := config.LoadFile(path)
	if err != nil {
		return err
	}

	var warnings []string
	if !cfg.Session.Probe {
		warnings = append(warnings, "Client probes disabled - services are used as soon as their wait strategy passes")
	}
	if cfg.Runtime.StopTimeout > cfg.Runtime.StartupTimeout {
		warnings = append(warnings, "Stop timeout exceeds startup timeout")
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file: %s\n", path)
	_, _ = fmt.Fprintln(out, "Validation: OK")

	if len(warnings) > 0 {
		_, _ = fmt.Fprintln(out, "\nWarnings:")
		for _, w := range warnings {
			_, _ = fmt.Fprintf(out, "  - %s\n", w)
		}
	}

	_, _ = fmt.Fprintf(out, "\nConfiguration summary:\n")
	_, _ = fmt.Fprintf(out, "  Section key:     %s\n", cfg.Session.SectionKey)
	_, _ = fmt.Fprintf(out, "  Startup timeout: %s\n", cfg.Runtime.StartupTimeout)
	_, _ = fmt.Fprintf(out, "  Log level:       %s\n", cfg.Logging.Level)
	return nil
}
