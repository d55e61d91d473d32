package provider

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/marmos91/ephemera/pkg/settings"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	postgresImage = "postgres:16"
	postgresPort  = nat.Port("5432/tcp")
)

var postgresMarkers = []string{"postgresql", "psycopg"}

// Postgres provisions PostgreSQL for DATABASES entries whose ENGINE names a
// PostgreSQL backend.
type Postgres struct{}

var (
	_ Provider           = Postgres{}
	_ ConnectionStringer = Postgres{}
	_ Prober             = Postgres{}
)

func (Postgres) Name() Kind { return KindPostgres }

func (Postgres) CanAutoDetect(s *settings.Settings) bool {
	return detectDatabase(s, postgresMarkers)
}

func (Postgres) DefaultConfig() *Config {
	return relationalDefaults(postgresImage)
}

// BuildInstance uses the testcontainers postgres module options for the base
// environment. PostgreSQL logs "ready to accept connections" once during
// bootstrap and once when actually ready, hence the two occurrences.
func (Postgres) BuildInstance(cfg *Config) (*Description, error) {
	creds, err := readCredentials(KindPostgres, cfg, postgresImage)
	if err != nil {
		return nil, err
	}
	env, err := environmentOption(KindPostgres, cfg)
	if err != nil {
		return nil, err
	}

	return &Description{
		Kind:  KindPostgres,
		Image: creds.Image,
		Port:  postgresPort,
		Env:   env,
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort(postgresPort),
		),
		Customizers: []testcontainers.ContainerCustomizer{
			postgres.WithDatabase(creds.DBName),
			postgres.WithUsername(creds.Username),
			postgres.WithPassword(creds.Password),
		},
	}, nil
}

func (Postgres) ComputePatch(ep Endpoint, s *settings.Settings, cfg *Config) (*settings.Map, error) {
	return databasePatch(KindPostgres, postgresMarkers, ep, s, cfg, postgresImage)
}

func (Postgres) ConnectionString(ep Endpoint, cfg *Config) (string, error) {
	creds, err := readCredentials(KindPostgres, cfg, postgresImage)
	if err != nil {
		return "", err
	}
	return databaseURL("postgres", ep, creds, url.Values{"sslmode": []string{"disable"}}), nil
}

// Probe opens a short-lived pool and pings the server.
func (p Postgres) Probe(ctx context.Context, ep Endpoint, cfg *Config) error {
	connStr, err := p.ConnectionString(ep, cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping postgres: %w", err)
	}
	return nil
}
