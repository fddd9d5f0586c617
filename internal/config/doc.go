// Package config resolves the test database connection parameters.
//
// Parameters are read from TEST_DB_* environment variables through viper and
// validated with go-playground/validator. Host, user and database are required;
// a missing value is reported as ErrMissingCredentials so test suites can skip
// cleanly when no database is configured.
package config
