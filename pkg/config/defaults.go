package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default values.
const (
	DefaultStartupTimeout = 2 * time.Minute
	DefaultStopTimeout    = 30 * time.Second
	DefaultSectionKey     = "TESTCONTAINERS"
	DefaultEnvPrefix      = "EPHEMERA"
	DefaultProbeTimeout   = 30 * time.Second
	DefaultMetricsPort    = 9464
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Zero values are replaced with defaults; explicit values are preserved.
// Session.Probe is the exception: a false bool cannot be told apart from an
// unset one here, so its default is applied by Load through viper instead.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyRuntimeDefaults(&cfg.Runtime)
	applySessionDefaults(&cfg.Session)
	applyMetricsDefaults(&cfg.Metrics)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	cfg.Format = strings.ToLower(cfg.Format)

	// stdout carries command output (tables, patched settings)
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

func applyRuntimeDefaults(cfg *RuntimeConfig) {
	if cfg.StartupTimeout == 0 {
		cfg.StartupTimeout = DefaultStartupTimeout
	}
	if cfg.StopTimeout == 0 {
		cfg.StopTimeout = DefaultStopTimeout
	}
}

func applySessionDefaults(cfg *SessionConfig) {
	if cfg.SectionKey == "" {
		cfg.SectionKey = DefaultSectionKey
	}
	if cfg.EnvPrefix == "" {
		cfg.EnvPrefix = DefaultEnvPrefix
	}
	if cfg.ProbeTimeout == 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
}

// applyMetricsDefaults sets the port when metrics are enabled.
func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = DefaultMetricsPort
	}
}

// setViperDefaults registers every key with its default value.
func setViperDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "INFO")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stderr")

	v.SetDefault("runtime.startup_timeout", DefaultStartupTimeout.String())
	v.SetDefault("runtime.stop_timeout", DefaultStopTimeout.String())
	v.SetDefault("runtime.labels", map[string]string{})

	v.SetDefault("session.section_key", DefaultSectionKey)
	v.SetDefault("session.env_prefix", DefaultEnvPrefix)
	v.SetDefault("session.probe", true)
	v.SetDefault("session.probe_timeout", DefaultProbeTimeout.String())

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.port", DefaultMetricsPort)
}

// GetDefaultConfig returns a Config with all default values applied.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Session: SessionConfig{Probe: true},
		Metrics: MetricsConfig{Port: DefaultMetricsPort},
	}
	ApplyDefaults(cfg)
	return cfg
}
