package dbdriver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownDriver is returned by a Factory asked for an unregistered driver.
var ErrUnknownDriver = errors.New("unknown database driver")

// Options configures a new connection.
type Options struct {
	Host     string
	User     string
	Password string
	// Database is the schema selected when Select is true.
	Database string
	// Prefix replaces the #__ placeholder in statements passed to Exec.
	Prefix string
	// Select connects straight to Database. When false the connection is
	// opened without selecting it, since it may not exist yet.
	Select bool
}

// Connection is a session with a database server.
type Connection interface {
	// Name returns the canonical driver identifier (mysql, pgsql, sqlite).
	Name() string
	// Exec runs a statement, returning *ExecutionFailure on failure.
	Exec(ctx context.Context, query string) error
	// CreateDatabase creates the named database owned by user.
	CreateDatabase(ctx context.Context, name, user string) error
	// TableList returns the tables visible to the connection.
	TableList(ctx context.Context) ([]string, error)
	// TruncateTable removes every row of table.
	TruncateTable(ctx context.Context, table string) error
	// QuoteName quotes an identifier for inclusion in statement text.
	QuoteName(name string) string
	// Select switches the connection onto database. An empty name returns
	// to the state of a connection opened with Select false.
	Select(ctx context.Context, database string) error
	// DB exposes the underlying handle, e.g. for migrations.
	DB() *sql.DB
	Close() error
}

// Factory creates connections by driver identifier.
type Factory interface {
	GetDriver(ctx context.Context, name string, opts Options) (Connection, error)
}

// Opener opens a connection for one driver.
type Opener func(ctx context.Context, opts Options) (Connection, error)

// Registry is the default Factory, mapping driver identifiers to Openers.
type Registry struct {
	openers map[string]Opener
}

// NewFactory returns a Registry with the built-in drivers registered.
// The original framework's identifiers are accepted as aliases.
func NewFactory() *Registry {
	r := &Registry{openers: make(map[string]Opener)}
	r.Register(openMySQL, DriverMySQL, "mysqli", "pdomysql")
	r.Register(openPgSQL, DriverPgSQL, "postgres", "postgresql", "pgx")
	r.Register(openSQLite, DriverSQLite, "sqlite3")
	return r
}

// Register associates opener with one or more identifiers, replacing any
// previous registration. Identifiers are case-insensitive.
func (r *Registry) Register(opener Opener, names ...string) {
	for _, name := range names {
		r.openers[strings.ToLower(name)] = opener
	}
}

// Drivers returns the registered identifiers in sorted order.
func (r *Registry) Drivers() []string {
	names := make([]string, 0, len(r.openers))
	for name := range r.openers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetDriver implements Factory.
func (r *Registry) GetDriver(ctx context.Context, name string, opts Options) (Connection, error) {
	opener, ok := r.openers[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, name)
	}

	conn, err := opener(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", name, maskCredentials(err, opts.Password))
	}

	return conn, nil
}
