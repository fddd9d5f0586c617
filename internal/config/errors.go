package config

import "errors"

// ErrMissingCredentials is returned when a required connection variable is unset or empty.
var ErrMissingCredentials = errors.New("missing test database credentials")
