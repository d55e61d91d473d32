package provider

import (
	"errors"
	"fmt"
)

// ErrUnknownProvider is returned when a kind is not present in a registry.
var ErrUnknownProvider = errors.New("unknown provider")

// ConfigError reports malformed provider configuration: a declarative block
// that is not a mapping, a flag that is not a bool, or an option that cannot
// be coerced to the type the provider needs.
type ConfigError struct {
	Kind   Kind
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	switch {
	case e.Kind != "" && e.Key != "":
		return fmt.Sprintf("provider %s: option %q: %s", e.Kind, e.Key, e.Reason)
	case e.Kind != "":
		return fmt.Sprintf("provider %s: %s", e.Kind, e.Reason)
	case e.Key != "":
		return fmt.Sprintf("%s: %s", e.Key, e.Reason)
	default:
		return e.Reason
	}
}

// IsConfigError reports whether err wraps a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
