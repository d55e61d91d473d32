package provider

import (
	"github.com/docker/go-connections/nat"
	"github.com/marmos91/ephemera/pkg/settings"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	mysqlImage = "mysql:8"
	mysqlPort  = nat.Port("3306/tcp")
)

var mysqlMarkers = []string{"mysql", "mariadb"}

// MySQL provisions MySQL (or MariaDB, via the image option) for DATABASES
// entries whose ENGINE names a MySQL or MariaDB backend.
type MySQL struct{}

var (
	_ Provider           = MySQL{}
	_ ConnectionStringer = MySQL{}
)

func (MySQL) Name() Kind { return KindMySQL }

func (MySQL) CanAutoDetect(s *settings.Settings) bool {
	return detectDatabase(s, mysqlMarkers)
}

func (MySQL) DefaultConfig() *Config {
	return relationalDefaults(mysqlImage)
}

// BuildInstance mirrors the environment the official image expects. The root
// account shares the configured password; a separate user is only created
// when the username is not root, since the image refuses MYSQL_USER=root.
func (MySQL) BuildInstance(cfg *Config) (*Description, error) {
	creds, err := readCredentials(KindMySQL, cfg, mysqlImage)
	if err != nil {
		return nil, err
	}
	extra, err := environmentOption(KindMySQL, cfg)
	if err != nil {
		return nil, err
	}

	env := map[string]string{
		"MYSQL_DATABASE":      creds.DBName,
		"MYSQL_ROOT_PASSWORD": creds.Password,
	}
	if creds.Username != "root" {
		env["MYSQL_USER"] = creds.Username
		env["MYSQL_PASSWORD"] = creds.Password
	}
	for k, v := range extra {
		env[k] = v
	}

	return &Description{
		Kind:  KindMySQL,
		Image: creds.Image,
		Port:  mysqlPort,
		Env:   env,
		// The temporary init server listens on port 0, so "port: 3306" only
		// shows up once the final server is ready. MariaDB logs the same line.
		WaitingFor: wait.ForAll(
			wait.ForLog("port: 3306"),
			wait.ForListeningPort(mysqlPort),
		),
	}, nil
}

func (MySQL) ComputePatch(ep Endpoint, s *settings.Settings, cfg *Config) (*settings.Map, error) {
	return databasePatch(KindMySQL, mysqlMarkers, ep, s, cfg, mysqlImage)
}

func (MySQL) ConnectionString(ep Endpoint, cfg *Config) (string, error) {
	creds, err := readCredentials(KindMySQL, cfg, mysqlImage)
	if err != nil {
		return "", err
	}
	return databaseURL("mysql", ep, creds, nil), nil
}
