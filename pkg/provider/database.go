package provider

import (
	"net/url"
	"strconv"

	"github.com/marmos91/ephemera/pkg/settings"
)

// Keys written into a reconciled DATABASES entry.
const (
	dbFieldEngine   = "ENGINE"
	dbFieldHost     = "HOST"
	dbFieldPort     = "PORT"
	dbFieldUser     = "USER"
	dbFieldPassword = "PASSWORD"
	dbFieldName     = "NAME"
)

const defaultCredential = "test"

// credentials are the connection options shared by relational providers.
type credentials struct {
	Image    string
	Username string
	Password string
	DBName   string
}

func readCredentials(kind Kind, cfg *Config, defaultImage string) (credentials, error) {
	var c credentials
	var err error
	if c.Image, err = stringOption(kind, cfg, OptionImage, defaultImage); err != nil {
		return c, err
	}
	if c.Username, err = stringOption(kind, cfg, OptionUsername, defaultCredential); err != nil {
		return c, err
	}
	if c.Password, err = stringOption(kind, cfg, OptionPassword, defaultCredential); err != nil {
		return c, err
	}
	if c.DBName, err = stringOption(kind, cfg, OptionDBName, defaultCredential); err != nil {
		return c, err
	}
	if c.Image == "" {
		return c, &ConfigError{Kind: kind, Key: OptionImage, Reason: "must not be empty"}
	}
	return c, nil
}

func relationalDefaults(image string) *Config {
	return settings.MapOf(
		OptionImage, image,
		OptionUsername, defaultCredential,
		OptionPassword, defaultCredential,
		OptionDBName, defaultCredential,
	)
}

// detectDatabase reports whether any DATABASES entry has an ENGINE matching
// one of the markers.
func detectDatabase(s *settings.Settings, markers []string) bool {
	for _, e := range s.Entries(settings.KeyDatabases) {
		if containsAnyFold(entryField(e.Value, dbFieldEngine), markers...) {
			return true
		}
	}
	return false
}

// databasePatch points every DATABASES entry whose ENGINE matches the markers
// at the running instance. Each patched entry carries the original entry's
// keys so replacing it wholesale loses nothing.
func databasePatch(kind Kind, markers []string, ep Endpoint, s *settings.Settings, cfg *Config, defaultImage string) (*settings.Map, error) {
	creds, err := readCredentials(kind, cfg, defaultImage)
	if err != nil {
		return nil, err
	}

	patch := settings.NewMap()
	var dbs *settings.Map
	for _, e := range s.Entries(settings.KeyDatabases) {
		if !containsAnyFold(entryField(e.Value, dbFieldEngine), markers...) {
			continue
		}
		if dbs == nil {
			dbs = settings.NewMap()
			patch.Set(settings.KeyDatabases, dbs)
		}
		entry := e.Value.Clone()
		entry.Set(dbFieldHost, ep.Host)
		entry.Set(dbFieldPort, ep.Port)
		entry.Set(dbFieldUser, creds.Username)
		entry.Set(dbFieldPassword, creds.Password)
		entry.Set(dbFieldName, creds.DBName)
		dbs.Set(e.Alias, entry)
	}
	return patch, nil
}

func databaseURL(scheme string, ep Endpoint, c credentials, query url.Values) string {
	u := url.URL{
		Scheme:   scheme,
		User:     url.UserPassword(c.Username, c.Password),
		Host:     ep.Host + ":" + strconv.Itoa(ep.Port),
		Path:     "/" + c.DBName,
		RawQuery: query.Encode(),
	}
	return u.String()
}
