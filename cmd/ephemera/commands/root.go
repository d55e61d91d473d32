// Package commands implements the ephemera CLI.
package commands

import (
	configcmd "github.com/marmos91/ephemera/cmd/ephemera/commands/config"
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile      string
	outputFormat string
	noColor      bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "ephemera",
	Short: "Ephemeral backing services for test runs",
	Long: `ephemera starts throwaway databases and caches in containers for the
duration of a test run and points an application's settings at them.

Services are detected from the settings file (DATABASES engines, CACHES
backends, CELERY_BROKER_URL) or declared under the TESTCONTAINERS section:

  TESTCONTAINERS:
    postgres:
      image: postgres:16-alpine
    redis:
      enabled: false

Use "ephemera [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/ephemera/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format (table|json|yaml|env)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(providersCmd)
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(upCmd)
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(configcmd.Cmd)
	rootCmd.AddCommand(completionCmd)

	// Hide the default completion command (we provide our own)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}

// PrintErr prints an error message to stderr.
func PrintErr(format string, args ...any) {
	rootCmd.PrintErrf(format+"\n", args...)
}
