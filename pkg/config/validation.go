package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks cfg against the constraints declared in its struct tags.
// Every violated constraint is reported, one per line, as
// "<field path>: failed '<tag>' validation".
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		tag := fe.Tag()
		if fe.Param() != "" {
			tag += "=" + fe.Param()
		}
		msgs = append(msgs, fmt.Sprintf("%s: failed '%s' validation (value: %v)", fieldPath(fe.Namespace()), tag, fe.Value()))
	}
	return errors.New(strings.Join(msgs, "\n"))
}

// fieldPath turns "Config.Session.EnvPrefix" into "Session.EnvPrefix".
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}
