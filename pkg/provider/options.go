package provider

import (
	"fmt"
	"strings"

	"github.com/marmos91/ephemera/pkg/settings"
)

// stringOption reads a string option, falling back to def when absent.
func stringOption(kind Kind, cfg *Config, key, def string) (string, error) {
	v, present, err := cfg.StringValue(key)
	if err != nil {
		raw, _ := cfg.Get(key)
		return "", &ConfigError{Kind: kind, Key: key, Reason: "expected a string, got " + settings.TypeName(raw)}
	}
	if !present {
		return def, nil
	}
	return v, nil
}

// intOption reads an integer option, falling back to def when absent.
func intOption(kind Kind, cfg *Config, key string, def int) (int, error) {
	raw, ok := cfg.Get(key)
	if !ok {
		return def, nil
	}
	switch n := raw.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	default:
		return 0, &ConfigError{Kind: kind, Key: key, Reason: "expected an integer, got " + settings.TypeName(raw)}
	}
}

// environmentOption reads the extra container environment. Values may be any
// scalar; they are rendered as strings. Mappings and sequences are rejected.
func environmentOption(kind Kind, cfg *Config) (map[string]string, error) {
	raw, ok := cfg.Get(OptionEnvironment)
	if !ok || raw == nil {
		return nil, nil
	}
	m, ok := raw.(*settings.Map)
	if !ok {
		return nil, &ConfigError{Kind: kind, Key: OptionEnvironment, Reason: "expected a mapping, got " + settings.TypeName(raw)}
	}

	env := make(map[string]string, m.Len())
	var cerr error
	m.Range(func(k string, v any) bool {
		switch val := v.(type) {
		case string:
			env[k] = val
		case bool, int, int64, float64:
			env[k] = fmt.Sprint(val)
		case nil:
			env[k] = ""
		default:
			cerr = &ConfigError{
				Kind:   kind,
				Key:    OptionEnvironment + "." + k,
				Reason: "expected a scalar, got " + settings.TypeName(v),
			}
			return false
		}
		return true
	})
	if cerr != nil {
		return nil, cerr
	}
	return env, nil
}

// containsAnyFold reports whether s contains any marker, ignoring case.
func containsAnyFold(s string, markers ...string) bool {
	if s == "" {
		return false
	}
	lower := strings.ToLower(s)
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// entryField returns a string field of a settings entry, or "" when missing
// or not a string.
func entryField(entry *settings.Map, field string) string {
	v, _, err := entry.StringValue(field)
	if err != nil {
		return ""
	}
	return v
}
