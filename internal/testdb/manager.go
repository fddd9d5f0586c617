package testdb

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/testkit/internal/config"
	"github.com/phrazzld/testkit/internal/dbdriver"
	"github.com/phrazzld/testkit/internal/platform/logger"
)

// Manager owns the connection to the test database server and the lifecycle
// of the test database on it.
//
// A Manager moves from uninitialised to parameters-resolved to connected.
// Parameters are read at most once and never change afterwards. The
// connection is created lazily by Connection and is kept until Close or
// Reset. A Manager is not safe for concurrent use.
type Manager struct {
	factory    dbdriver.Factory
	loadParams func() (config.Params, error)
	logger     *slog.Logger

	params *config.Params
	conn   dbdriver.Connection
}

// Option configures a Manager.
type Option func(*Manager)

// WithFactory sets the factory used to open connections.
func WithFactory(f dbdriver.Factory) Option {
	return func(m *Manager) {
		m.factory = f
	}
}

// WithLogger sets the logger used for lifecycle events.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithParamsLoader replaces the environment lookup, e.g. to read parameters
// from another source. The loader is called at most once per resolution.
func WithParamsLoader(load func() (config.Params, error)) Option {
	return func(m *Manager) {
		m.loadParams = load
	}
}

// NewManager returns an uninitialised Manager. Without options it reads the
// TEST_DB_* variables and opens connections through dbdriver.NewFactory.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		factory:    dbdriver.NewFactory(),
		loadParams: config.Load,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ResolveParameters reads the connection parameters unless already done. It is
// called by Connection and only needs calling directly to inspect Params
// without connecting.
func (m *Manager) ResolveParameters() error {
	if m.params != nil {
		return nil
	}

	p, err := m.loadParams()
	if err != nil {
		return fmt.Errorf("failed to resolve test database parameters: %w", err)
	}

	m.params = &p
	m.logger.Debug("resolved test database parameters", slog.Any("params", p))

	return nil
}

// Connection returns the server connection, resolving parameters and opening
// it on first use. A failed attempt leaves no connection behind, so a later
// call tries again.
func (m *Manager) Connection(ctx context.Context) (dbdriver.Connection, error) {
	if m.conn != nil {
		return m.conn, nil
	}

	if err := m.ResolveParameters(); err != nil {
		return nil, err
	}

	if err := m.createConnection(ctx); err != nil {
		return nil, err
	}

	return m.conn, nil
}

// createConnection opens a connection that does not select the test
// database, since it may not exist yet.
func (m *Manager) createConnection(ctx context.Context) error {
	p := *m.params
	opts := dbdriver.Options{
		Host:     p.Host,
		User:     p.User,
		Password: p.Password,
		Database: p.Database,
		Prefix:   p.Prefix,
		Select:   false,
	}

	conn, err := m.factory.GetDriver(ctx, p.Driver, opts)
	if err != nil {
		return err
	}

	m.conn = conn
	m.log(ctx).Debug("opened test database connection",
		slog.String("driver", conn.Name()),
		slog.String("host", p.Host))

	return nil
}

func (m *Manager) requireConnection(op string) error {
	if m.conn == nil {
		return fmt.Errorf("%w: call Connection before %s", ErrConnectionNotInitialised, op)
	}
	return nil
}

// CreateDatabase creates the test database. An existing database is not an
// error.
func (m *Manager) CreateDatabase(ctx context.Context) error {
	if err := m.requireConnection("CreateDatabase"); err != nil {
		return err
	}

	name := m.params.Database
	err := m.conn.CreateDatabase(ctx, name, m.params.User)
	if err == nil {
		m.log(ctx).Debug("created test database", slog.String("database", name))
		return nil
	}

	if isBenignFailure(err, phrasesFor(m.conn.Name()).exists, name) {
		m.log(ctx).Info("test database already exists", slog.String("database", name))
		return nil
	}

	return err
}

// DropDatabase drops the test database. A missing database is not an error.
func (m *Manager) DropDatabase(ctx context.Context) error {
	if err := m.requireConnection("DropDatabase"); err != nil {
		return err
	}

	name := m.params.Database
	err := m.conn.Exec(ctx, "DROP DATABASE "+m.conn.QuoteName(name))
	if err == nil {
		m.log(ctx).Debug("dropped test database", slog.String("database", name))
		return nil
	}

	if isBenignFailure(err, phrasesFor(m.conn.Name()).missing, name) {
		m.log(ctx).Info("test database does not exist", slog.String("database", name))
		return nil
	}

	return err
}

// ClearTables truncates every table the connection reports, in the reported
// order. It stops at the first failure; tables already truncated stay empty.
func (m *Manager) ClearTables(ctx context.Context) error {
	if err := m.requireConnection("ClearTables"); err != nil {
		return err
	}

	tables, err := m.conn.TableList(ctx)
	if err != nil {
		return err
	}

	for _, table := range tables {
		if err := m.conn.TruncateTable(ctx, table); err != nil {
			return err
		}
	}

	m.log(ctx).Debug("cleared test tables", slog.Int("count", len(tables)))

	return nil
}

// DBName returns the name of the test database.
func (m *Manager) DBName() (string, error) {
	if m.params == nil {
		return "", ErrParamsNotResolved
	}
	return m.params.Database, nil
}

// Params returns a copy of the resolved parameters.
func (m *Manager) Params() (config.Params, error) {
	if m.params == nil {
		return config.Params{}, ErrParamsNotResolved
	}
	return *m.params, nil
}

// SelectDatabase switches the connection onto the test database.
func (m *Manager) SelectDatabase(ctx context.Context) error {
	if err := m.requireConnection("SelectDatabase"); err != nil {
		return err
	}

	if err := m.conn.Select(ctx, m.params.Database); err != nil {
		return fmt.Errorf("failed to select test database %q: %w", m.params.Database, err)
	}

	return nil
}

// Teardown returns the connection to the server level, drops the test
// database and closes the connection. A closed connection is reopened first.
func (m *Manager) Teardown(ctx context.Context) error {
	conn, err := m.Connection(ctx)
	if err != nil {
		return err
	}

	if err := conn.Select(ctx, ""); err != nil {
		return fmt.Errorf("failed to deselect test database: %w", err)
	}

	if err := m.DropDatabase(ctx); err != nil {
		return err
	}

	return m.Close()
}

// Close releases the connection. Parameters stay resolved, so a later
// Connection call opens a new one.
func (m *Manager) Close() error {
	if m.conn == nil {
		return nil
	}

	err := m.conn.Close()
	m.conn = nil
	if err != nil {
		return fmt.Errorf("failed to close test database connection: %w", err)
	}

	return nil
}

// Reset closes the connection and forgets the resolved parameters.
func (m *Manager) Reset() error {
	err := m.Close()
	m.params = nil
	return err
}

func (m *Manager) log(ctx context.Context) *slog.Logger {
	return logger.FromContextOrDefault(ctx, m.logger)
}
