package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
  format: json
runtime:
  startup_timeout: 45s
  labels:
    team: qa
session:
  section_key: SERVICES
  probe: false
metrics:
  enabled: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected level normalized to 'DEBUG', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected format 'json', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stderr" {
		t.Errorf("Expected default output 'stderr', got %q", cfg.Logging.Output)
	}
	if cfg.Runtime.StartupTimeout != 45*time.Second {
		t.Errorf("Expected startup_timeout 45s, got %v", cfg.Runtime.StartupTimeout)
	}
	if cfg.Runtime.StopTimeout != DefaultStopTimeout {
		t.Errorf("Expected default stop_timeout, got %v", cfg.Runtime.StopTimeout)
	}
	if cfg.Runtime.Labels["team"] != "qa" {
		t.Errorf("Expected label team=qa, got %v", cfg.Runtime.Labels)
	}
	if cfg.Session.SectionKey != "SERVICES" {
		t.Errorf("Expected section_key 'SERVICES', got %q", cfg.Session.SectionKey)
	}
	if cfg.Session.Probe {
		t.Error("Expected probe to be disabled")
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Port != DefaultMetricsPort {
		t.Errorf("Expected metrics enabled on %d, got %+v", DefaultMetricsPort, cfg.Metrics)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("Expected no error when loading default config, got: %v", err)
	}

	def := GetDefaultConfig()
	if cfg.Session != def.Session {
		t.Errorf("Expected default session config %+v, got %+v", def.Session, cfg.Session)
	}
	if cfg.Runtime.StartupTimeout != DefaultStartupTimeout {
		t.Errorf("Expected default startup timeout, got %v", cfg.Runtime.StartupTimeout)
	}
	if !cfg.Session.Probe {
		t.Error("Expected probe to default to true")
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("EPHEMERA_LOGGING_LEVEL", "WARN")
	t.Setenv("EPHEMERA_RUNTIME_STOP_TIMEOUT", "5s")
	t.Setenv("EPHEMERA_SESSION_ENV_PREFIX", "CI")

	path := writeConfig(t, "logging:\n  level: DEBUG\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "WARN" {
		t.Errorf("Expected env to override level, got %q", cfg.Logging.Level)
	}
	if cfg.Runtime.StopTimeout != 5*time.Second {
		t.Errorf("Expected stop_timeout 5s from env, got %v", cfg.Runtime.StopTimeout)
	}
	if cfg.Session.EnvPrefix != "CI" {
		t.Errorf("Expected env_prefix 'CI' from env, got %q", cfg.Session.EnvPrefix)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeConfig(t, "runtime:\n  startup_timeout: soon\n")

	_, err := Load(path)
	if err == nil {
		t.Fatal("Expected error for invalid duration")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeConfig(t, "logging:\n  format: xml\n")

	_, err := Load(path)
	if err == nil {
		t.Fatal("Expected validation error")
	}
	if !strings.Contains(err.Error(), "Logging.Format") {
		t.Errorf("Expected error to name Logging.Format, got: %v", err)
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	path := writeConfig(t, "logging: [unterminated\n")

	if _, err := Load(path); err == nil {
		t.Fatal("Expected error for malformed YAML")
	}
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("Expected not found error, got: %v", err)
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Runtime.Labels = map[string]string{"ci": "true"}
	cfg.Session.EnvPrefix = "SVC"

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Expected config file to exist: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("Expected 0600 permissions, got %v", info.Mode().Perm())
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to reload config: %v", err)
	}
	if loaded.Session.EnvPrefix != "SVC" {
		t.Errorf("Expected env_prefix 'SVC', got %q", loaded.Session.EnvPrefix)
	}
	if loaded.Runtime.Labels["ci"] != "true" {
		t.Errorf("Expected label ci=true, got %v", loaded.Runtime.Labels)
	}
	if loaded.Runtime.StartupTimeout != cfg.Runtime.StartupTimeout {
		t.Errorf("Expected startup timeout %v, got %v", cfg.Runtime.StartupTimeout, loaded.Runtime.StartupTimeout)
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	want := filepath.Join(dir, "ephemera", "config.yaml")
	if got := GetDefaultConfigPath(); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
	if DefaultConfigExists() {
		t.Error("Expected no default config in an empty directory")
	}
}

func TestSchema(t *testing.T) {
	data, err := Schema()
	if err != nil {
		t.Fatalf("Failed to generate schema: %v", err)
	}

	for _, want := range []string{`"startup_timeout"`, `"section_key"`, `"ephemera configuration"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("Expected schema to contain %s", want)
		}
	}
}
