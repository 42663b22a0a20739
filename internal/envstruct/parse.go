package envstruct

import (
	"github.com/caarlos0/env/v11"
	"github.com/polluterofminds/parallax-server/internal/errors"
)

var (
	ErrEnvNotSet    = errors.NewSentinel("environment variable not set")
	ErrInvalidValue = errors.NewSentinel("v must be a pointer to a struct")
)

// Populate populates the fields of the pointer to struct v with values from the environment.
//
// environ maps environment variable names to values. A nil map reads the process environment.
// Fields in the struct v must be tagged with `env:"ENV_VAR"` where ENV_VAR is the name of the environment variable.
// If no environment variable matching ENV_VAR is provided, the field must be tagged with default value
// `envDefault:"value"` or else ErrEnvNotSet is returned. Strings, integers, booleans and durations are supported.
func Populate(v any, environ map[string]string) error {
	err := env.ParseWithOptions(v, env.Options{ //nolint:exhaustruct // the remaining options keep their defaults
		Environment:     environ,
		RequiredIfNoDef: true,
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, env.NotStructPtrError{}):
		return errors.Wrap(ErrInvalidValue, err.Error())
	case errors.Is(err, env.EnvVarIsNotSetError{}):
		return errors.Wrap(ErrEnvNotSet, err.Error())
	default:
		return errors.Wrap(err, "parse environment")
	}
}
