package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/phrazzld/testkit/internal/ciutil"
)

// Load resolves Params from the TEST_DB_* environment variables.
// Driver falls back to DefaultDriver and prefix to the empty string; host,
// user and database have no default and their absence yields an error
// wrapping ErrMissingCredentials that names the missing variables.
func Load() (Params, error) {
	v := viper.New()
	v.SetEnvPrefix(ciutil.TestDBEnvPrefix)

	v.SetDefault("driver", DefaultDriver)
	v.SetDefault("prefix", "")
	v.SetDefault("password", "")

	for _, key := range []string{"driver", "host", "user", "password", "prefix", "database"} {
		if err := v.BindEnv(key); err != nil {
			return Params{}, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	var p Params
	if err := v.Unmarshal(&p); err != nil {
		return Params{}, fmt.Errorf("failed to decode test database parameters: %w", err)
	}

	if err := validate(p); err != nil {
		return Params{}, err
	}

	return p, nil
}

// validate checks the required subset and translates validator errors into
// ErrMissingCredentials.
func validate(p Params) error {
	err := validator.New().Struct(p)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate test database parameters: %w", err)
	}

	missing := ciutil.MissingVariables(requiredVariables...)
	if len(missing) == 0 {
		// Only reachable when the environment changed after decoding.
		for _, fe := range verrs {
			missing = append(missing, fe.StructField())
		}
	}

	return fmt.Errorf("%w: %s must be set", ErrMissingCredentials, strings.Join(missing, ", "))
}
