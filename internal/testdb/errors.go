package testdb

import (
	"errors"

	"github.com/phrazzld/testkit/internal/config"
)

var (
	// ErrConnectionNotInitialised is returned by operations that need a
	// connection before Connection has succeeded.
	ErrConnectionNotInitialised = errors.New("database connection not initialised")

	// ErrParamsNotResolved is returned by accessors called before the
	// connection parameters have been read.
	ErrParamsNotResolved = errors.New("database parameters not resolved")

	// ErrMissingCredentials is returned when host, user or database are not
	// configured.
	ErrMissingCredentials = config.ErrMissingCredentials
)
