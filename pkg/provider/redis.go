package provider

import (
	"fmt"

	"github.com/docker/go-connections/nat"
	"github.com/marmos91/ephemera/pkg/settings"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	redisImage = "redis:7-alpine"
	redisPort  = nat.Port("6379/tcp")

	cacheFieldBackend  = "BACKEND"
	cacheFieldLocation = "LOCATION"
)

// Redis provisions a Redis server for cache backends, a Celery broker or a
// session engine that use Redis.
type Redis struct{}

var (
	_ Provider           = Redis{}
	_ ConnectionStringer = Redis{}
)

func (Redis) Name() Kind { return KindRedis }

func (Redis) CanAutoDetect(s *settings.Settings) bool {
	for _, e := range s.Entries(settings.KeyCaches) {
		if containsAnyFold(entryField(e.Value, cacheFieldBackend), "redis") {
			return true
		}
	}
	if containsAnyFold(s.String(settings.KeyCeleryBrokerURL), "redis://") {
		return true
	}
	return containsAnyFold(s.String(settings.KeySessionEngine), "redis")
}

func (Redis) DefaultConfig() *Config {
	return settings.MapOf(OptionImage, redisImage)
}

func (Redis) BuildInstance(cfg *Config) (*Description, error) {
	image, err := stringOption(KindRedis, cfg, OptionImage, redisImage)
	if err != nil {
		return nil, err
	}
	if image == "" {
		return nil, &ConfigError{Kind: KindRedis, Key: OptionImage, Reason: "must not be empty"}
	}
	env, err := environmentOption(KindRedis, cfg)
	if err != nil {
		return nil, err
	}

	return &Description{
		Kind:  KindRedis,
		Image: image,
		Port:  redisPort,
		Env:   env,
		WaitingFor: wait.ForAll(
			wait.ForLog("Ready to accept connections"),
			wait.ForListeningPort(redisPort),
		),
	}, nil
}

// ComputePatch rewrites every Redis cache LOCATION and, when the Celery broker
// is Redis, both the broker and the result backend. A literal update_settings
// mapping in cfg replaces the computed patch entirely.
func (r Redis) ComputePatch(ep Endpoint, s *settings.Settings, cfg *Config) (*settings.Map, error) {
	if raw, ok := cfg.Get(OptionUpdateSettings); ok {
		literal, ok := raw.(*settings.Map)
		if !ok {
			return nil, &ConfigError{Kind: KindRedis, Key: OptionUpdateSettings, Reason: "expected a mapping, got " + settings.TypeName(raw)}
		}
		return literal.Clone(), nil
	}

	location, err := r.ConnectionString(ep, cfg)
	if err != nil {
		return nil, err
	}

	patch := settings.NewMap()
	var caches *settings.Map
	for _, e := range s.Entries(settings.KeyCaches) {
		if !containsAnyFold(entryField(e.Value, cacheFieldBackend), "redis") {
			continue
		}
		if caches == nil {
			caches = settings.NewMap()
			patch.Set(settings.KeyCaches, caches)
		}
		entry := e.Value.Clone()
		entry.Set(cacheFieldLocation, location)
		caches.Set(e.Alias, entry)
	}

	if containsAnyFold(s.String(settings.KeyCeleryBrokerURL), "redis://") {
		patch.Set(settings.KeyCeleryBrokerURL, location)
		patch.Set(settings.KeyCeleryResultBackend, location)
	}

	return patch, nil
}

// ConnectionString returns redis://host:port/db, db defaulting to 0.
func (Redis) ConnectionString(ep Endpoint, cfg *Config) (string, error) {
	db, err := intOption(KindRedis, cfg, OptionDB, 0)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("redis://%s:%d/%d", ep.Host, ep.Port, db), nil
}
