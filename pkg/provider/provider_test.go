package provider

import (
	"testing"

	"github.com/marmos91/ephemera/pkg/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
)

func databases(entries ...any) *settings.Settings {
	return settings.FromMap(settings.MapOf(settings.KeyDatabases, settings.MapOf(entries...)))
}

func TestCanAutoDetect_Databases(t *testing.T) {
	tests := []struct {
		name     string
		settings *settings.Settings
		postgres bool
		mysql    bool
	}{
		{
			name:     "postgresql engine",
			settings: databases("default", settings.MapOf("ENGINE", "django.db.backends.postgresql")),
			postgres: true,
		},
		{
			name:     "psycopg engine, mixed case",
			settings: databases("default", settings.MapOf("ENGINE", "Custom.PSYCOPG.Backend")),
			postgres: true,
		},
		{
			name:     "mysql engine",
			settings: databases("default", settings.MapOf("ENGINE", "django.db.backends.mysql")),
			mysql:    true,
		},
		{
			name:     "mariadb engine",
			settings: databases("default", settings.MapOf("ENGINE", "mariadb.backend")),
			mysql:    true,
		},
		{
			name: "both kinds",
			settings: databases(
				"default", settings.MapOf("ENGINE", "django.db.backends.postgresql"),
				"legacy", settings.MapOf("ENGINE", "django.db.backends.mysql"),
			),
			postgres: true,
			mysql:    true,
		},
		{
			name:     "sqlite only",
			settings: databases("default", settings.MapOf("ENGINE", "django.db.backends.sqlite3")),
		},
		{
			name:     "no databases",
			settings: settings.New(),
		},
		{
			name:     "databases is not a mapping",
			settings: settings.FromMap(settings.MapOf(settings.KeyDatabases, "oops")),
		},
		{
			name:     "entry without engine or with non-string engine",
			settings: databases("a", settings.MapOf("NAME", "x"), "b", settings.MapOf("ENGINE", 5), "c", "scalar"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.postgres, Postgres{}.CanAutoDetect(tt.settings))
			assert.Equal(t, tt.mysql, MySQL{}.CanAutoDetect(tt.settings))
		})
	}
}

func TestCanAutoDetect_Redis(t *testing.T) {
	tests := []struct {
		name string
		m    *settings.Map
		want bool
	}{
		{"redis cache backend", settings.MapOf("CACHES", settings.MapOf("default", settings.MapOf("BACKEND", "django.core.cache.backends.redis.RedisCache"))), true},
		{"locmem cache", settings.MapOf("CACHES", settings.MapOf("default", settings.MapOf("BACKEND", "django.core.cache.backends.locmem.LocMemCache"))), false},
		{"celery redis broker", settings.MapOf("CELERY_BROKER_URL", "REDIS://localhost:6379/0"), true},
		{"celery amqp broker", settings.MapOf("CELERY_BROKER_URL", "amqp://guest@localhost//"), false},
		{"redis session engine", settings.MapOf("SESSION_ENGINE", "redis_sessions.session"), true},
		{"db session engine", settings.MapOf("SESSION_ENGINE", "django.contrib.sessions.backends.db"), false},
		{"nothing", settings.NewMap(), false},
		{"mistyped broker", settings.MapOf("CELERY_BROKER_URL", 12), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Redis{}.CanAutoDetect(settings.FromMap(tt.m)))
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	assert.True(t, Postgres{}.DefaultConfig().Equal(settings.MapOf(
		"image", "postgres:16", "username", "test", "password", "test", "dbname", "test",
	)))
	assert.True(t, MySQL{}.DefaultConfig().Equal(settings.MapOf(
		"image", "mysql:8", "username", "test", "password", "test", "dbname", "test",
	)))
	assert.True(t, Redis{}.DefaultConfig().Equal(settings.MapOf("image", "redis:7-alpine")))

	// Every call returns a fresh value.
	a := Postgres{}.DefaultConfig()
	a.Set("image", "mutated")
	assert.True(t, Postgres{}.DefaultConfig().Equal(relationalDefaults(postgresImage)))
}

func customizedEnv(t *testing.T, d *Description) map[string]string {
	t.Helper()
	req := testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{Env: map[string]string{}},
	}
	for _, c := range d.Customizers {
		require.NoError(t, c.Customize(&req))
	}
	for k, v := range d.Env {
		req.Env[k] = v
	}
	return req.Env
}

func TestPostgres_BuildInstance(t *testing.T) {
	cfg := settings.MapOf(
		"image", "postgres:15-alpine",
		"username", "alice",
		"password", "s3cret",
		"dbname", "shop",
		"environment", settings.MapOf("POSTGRES_INITDB_ARGS", "--data-checksums", "POSTGRES_USER", "override", "TZ_OFFSET", 2),
	)

	d, err := Postgres{}.BuildInstance(cfg)
	require.NoError(t, err)

	assert.Equal(t, KindPostgres, d.Kind)
	assert.Equal(t, "postgres:15-alpine", d.Image)
	assert.Equal(t, "5432/tcp", string(d.Port))
	assert.NotNil(t, d.WaitingFor)

	env := customizedEnv(t, d)
	assert.Equal(t, "shop", env["POSTGRES_DB"])
	assert.Equal(t, "s3cret", env["POSTGRES_PASSWORD"])
	assert.Equal(t, "--data-checksums", env["POSTGRES_INITDB_ARGS"])
	assert.Equal(t, "2", env["TZ_OFFSET"])
	// environment is applied after the base parameters
	assert.Equal(t, "override", env["POSTGRES_USER"])
}

func TestMySQL_BuildInstance(t *testing.T) {
	d, err := MySQL{}.BuildInstance(MySQL{}.DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, "mysql:8", d.Image)
	assert.Equal(t, "3306/tcp", string(d.Port))
	assert.Equal(t, map[string]string{
		"MYSQL_DATABASE":      "test",
		"MYSQL_ROOT_PASSWORD": "test",
		"MYSQL_USER":          "test",
		"MYSQL_PASSWORD":      "test",
	}, d.Env)

	root := MySQL{}.DefaultConfig()
	root.Set("username", "root")
	d, err = MySQL{}.BuildInstance(root)
	require.NoError(t, err)
	assert.NotContains(t, d.Env, "MYSQL_USER")
}

func TestRedis_BuildInstance(t *testing.T) {
	cfg := settings.MapOf("image", "redis:6", "environment", settings.MapOf("REDIS_ARGS", "--maxmemory 64mb"))

	d, err := Redis{}.BuildInstance(cfg)
	require.NoError(t, err)
	assert.Equal(t, "redis:6", d.Image)
	assert.Equal(t, "6379/tcp", string(d.Port))
	assert.Equal(t, map[string]string{"REDIS_ARGS": "--maxmemory 64mb"}, d.Env)
}

func TestBuildInstance_ConfigErrors(t *testing.T) {
	tests := []struct {
		name     string
		provider Provider
		cfg      *Config
		key      string
	}{
		{"non-string username", Postgres{}, settings.MapOf("username", 42), "username"},
		{"non-string password", MySQL{}, settings.MapOf("password", true), "password"},
		{"mapping image", Redis{}, settings.MapOf("image", settings.NewMap()), "image"},
		{"empty image", Postgres{}, settings.MapOf("image", ""), "image"},
		{"environment not a mapping", Redis{}, settings.MapOf("environment", "A=1"), "environment"},
		{"environment nested value", Postgres{}, settings.MapOf("environment", settings.MapOf("A", []any{"x"})), "environment.A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.provider.BuildInstance(tt.cfg)
			require.Error(t, err)
			var ce *ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.provider.Name(), ce.Kind)
			assert.Equal(t, tt.key, ce.Key)
			assert.True(t, IsConfigError(err))
		})
	}
}

func TestBuildInstance_FallsBackToDefaultsForMissingOptions(t *testing.T) {
	d, err := Postgres{}.BuildInstance(settings.NewMap())
	require.NoError(t, err)
	assert.Equal(t, "postgres:16", d.Image)

	env := customizedEnv(t, d)
	assert.Equal(t, "test", env["POSTGRES_DB"])
}

func TestConfigError_Messages(t *testing.T) {
	assert.Equal(t, `provider redis: option "image": bad`, (&ConfigError{Kind: KindRedis, Key: "image", Reason: "bad"}).Error())
	assert.Equal(t, "provider redis: bad", (&ConfigError{Kind: KindRedis, Reason: "bad"}).Error())
	assert.Equal(t, "TESTCONTAINERS: bad", (&ConfigError{Key: "TESTCONTAINERS", Reason: "bad"}).Error())
	assert.Equal(t, "bad", (&ConfigError{Reason: "bad"}).Error())
}
