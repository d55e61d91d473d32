// Package provider defines the capability every backing-service kind
// implements: detecting whether the host settings need it, producing default
// options, describing a runnable container, and translating a running
// instance's connection facts into a settings patch.
//
// The set of kinds is closed (postgres, mysql, redis). Adding a kind means
// adding a variant that implements Provider and registering it.
package provider

import (
	"context"

	"github.com/docker/go-connections/nat"
	"github.com/marmos91/ephemera/pkg/settings"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Kind uniquely identifies a provider inside a registry.
type Kind string

const (
	KindPostgres Kind = "postgres"
	KindMySQL    Kind = "mysql"
	KindRedis    Kind = "redis"
)

func (k Kind) String() string {
	return string(k)
}

// Config is the resolved option set of one provider: built-in defaults
// layered with the provider's declarative block.
type Config = settings.Map

// Option keys understood by the built-in providers.
const (
	OptionImage          = "image"
	OptionUsername       = "username"
	OptionPassword       = "password"
	OptionDBName         = "dbname"
	OptionEnvironment    = "environment"
	OptionUpdateSettings = "update_settings"
	OptionDB             = "db"

	// Control keys of a declarative block. They steer selection and are not
	// part of a resolved Config.
	OptionEnabled = "enabled"
	OptionAuto    = "auto"
)

// Endpoint is where a running instance can be reached from the host.
type Endpoint struct {
	Host string
	Port int
}

// Description is everything a container runtime needs to create an instance.
type Description struct {
	Kind  Kind
	Image string

	// Port is the container-internal port published to the host.
	Port nat.Port

	// Env is applied after Customizers, so entries here win.
	Env map[string]string

	Cmd        []string
	WaitingFor wait.Strategy

	// Customizers carry module-specific request options (e.g. the postgres
	// module's WithDatabase). They run before Env is overlaid.
	Customizers []testcontainers.ContainerCustomizer
}

// Provider is implemented by every service kind.
type Provider interface {
	// Name returns the stable identifier of the kind.
	Name() Kind

	// CanAutoDetect inspects the host settings for markers of this kind.
	// It never fails: missing or mistyped sections mean "not detected".
	CanAutoDetect(s *settings.Settings) bool

	// DefaultConfig returns a fresh copy of the built-in options.
	DefaultConfig() *Config

	// BuildInstance turns resolved options into a container description.
	// Options of the wrong type yield a *ConfigError.
	BuildInstance(cfg *Config) (*Description, error)

	// ComputePatch returns the settings fragment that points every matching
	// entry of s at ep. It re-scans s so that several entries of the same
	// kind are all reconciled.
	ComputePatch(ep Endpoint, s *settings.Settings, cfg *Config) (*settings.Map, error)
}

// ConnectionStringer is implemented by providers that can render a client
// URL for a running instance.
type ConnectionStringer interface {
	ConnectionString(ep Endpoint, cfg *Config) (string, error)
}

// Prober is implemented by providers that can actively verify a running
// instance accepts connections, beyond the container wait strategy.
type Prober interface {
	Probe(ctx context.Context, ep Endpoint, cfg *Config) error
}
