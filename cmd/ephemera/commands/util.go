package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/marmos91/ephemera/internal/cli/output"
	"github.com/marmos91/ephemera/internal/logger"
	"github.com/marmos91/ephemera/pkg/config"
	"github.com/marmos91/ephemera/pkg/provider"
	"github.com/marmos91/ephemera/pkg/settings"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Flags shared by the commands that work on a settings file.
var (
	settingsFile string
	overrides    []string
)

func addSettingsFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&settingsFile, "settings", "s", "settings.yaml", "Application settings file (YAML or JSON)")
	cmd.Flags().StringArrayVar(&overrides, "set", nil, "Provider option override as kind.option=value (repeatable)")
}

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// loadConfig loads the tool configuration and initializes logging from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return nil, err
	}
	if err := InitLogger(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadInputs loads the configuration, the settings file and the --set
// overrides every settings command needs.
func loadInputs() (*config.Config, *settings.Settings, map[provider.Kind]*settings.Map, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	s, err := settings.Load(settingsFile)
	if err != nil {
		return nil, nil, nil, err
	}
	ov, err := parseOverrides(overrides)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, s, ov, nil
}

// parseOverrides turns kind.option=value pairs into per-provider blocks.
// Values are decoded as YAML scalars, so "5432" is an int and "false" a bool.
func parseOverrides(pairs []string) (map[provider.Kind]*settings.Map, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[provider.Kind]*settings.Map)
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid override %q: expected kind.option=value", pair)
		}
		kind, option, ok := strings.Cut(key, ".")
		if !ok || kind == "" || option == "" {
			return nil, fmt.Errorf("invalid override %q: expected kind.option=value", pair)
		}

		var value any
		if err := yaml.Unmarshal([]byte(raw), &value); err != nil || !isScalar(value) {
			value = raw
		}

		k := provider.Kind(strings.ToLower(kind))
		if out[k] == nil {
			out[k] = settings.NewMap()
		}
		out[k].Set(option, value)
	}
	return out, nil
}

func isScalar(v any) bool {
	switch v.(type) {
	case nil, []any, map[string]any:
		return false
	default:
		return true
	}
}

// printer returns a Printer on the command's stdout for the --output flag.
func printer(cmd *cobra.Command) (*output.Printer, error) {
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return nil, err
	}
	w := cmd.OutOrStdout()
	return output.NewPrinter(w, format, !noColor && output.ColorSupported(w)), nil
}

// exitError carries a child process exit code up to main.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// ExitCode reports the process exit code err asks for, if any.
func ExitCode(err error) (int, bool) {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code, true
	}
	return 0, false
}
