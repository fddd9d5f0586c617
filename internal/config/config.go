package config

import (
	"log/slog"

	"github.com/phrazzld/testkit/internal/ciutil"
)

// DefaultDriver is used when TEST_DB_DRIVER is unset or empty.
const DefaultDriver = "mysql"

// Params holds the connection parameters of the test database.
type Params struct {
	// Driver selects the database engine adapter (mysql, pgsql, sqlite).
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host" validate:"required"`
	User     string `mapstructure:"user" validate:"required"`
	Password string `mapstructure:"password"`
	// Prefix is the table-name prefix of the framework under test.
	Prefix   string `mapstructure:"prefix"`
	Database string `mapstructure:"database" validate:"required"`
}

// requiredVariables are the variables a usable Params cannot do without, in
// the order they are reported when missing.
var requiredVariables = []string{
	ciutil.EnvTestDBHost,
	ciutil.EnvTestDBUser,
	ciutil.EnvTestDBDatabase,
}

// LogValue implements slog.LogValuer so the password never reaches the logs.
func (p Params) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("driver", p.Driver),
		slog.String("host", p.Host),
		slog.String("user", p.User),
		slog.String("password", ciutil.MaskPassword(p.Password)),
		slog.String("prefix", p.Prefix),
		slog.String("database", p.Database),
	)
}
