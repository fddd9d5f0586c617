package testdb_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/testkit/internal/ciutil"
	"github.com/phrazzld/testkit/internal/config"
	"github.com/phrazzld/testkit/internal/dbdriver"
	"github.com/phrazzld/testkit/internal/platform/logger"
	"github.com/phrazzld/testkit/internal/testdb"
)

// fakeConn records the calls the manager makes.
type fakeConn struct {
	name string

	createErr   error
	execErr     error
	tables      []string
	tablesErr   error
	truncateErr map[string]error
	selectErr   error

	created   [][2]string
	execs     []string
	truncated []string
	selected  []string
	closed    int
}

func (c *fakeConn) Name() string { return c.name }

func (c *fakeConn) Exec(_ context.Context, query string) error {
	c.execs = append(c.execs, query)
	return c.execErr
}

func (c *fakeConn) CreateDatabase(_ context.Context, name, user string) error {
	c.created = append(c.created, [2]string{name, user})
	return c.createErr
}

func (c *fakeConn) TableList(context.Context) ([]string, error) {
	return c.tables, c.tablesErr
}

func (c *fakeConn) TruncateTable(_ context.Context, table string) error {
	if err := c.truncateErr[table]; err != nil {
		return err
	}
	c.truncated = append(c.truncated, table)
	return nil
}

func (c *fakeConn) QuoteName(name string) string { return "`" + name + "`" }

func (c *fakeConn) Select(_ context.Context, database string) error {
	c.selected = append(c.selected, database)
	return c.selectErr
}

func (c *fakeConn) DB() *sql.DB { return nil }

func (c *fakeConn) Close() error {
	c.closed++
	return nil
}

// fakeFactory hands out conn, or fails with errs in order before doing so.
type fakeFactory struct {
	conn  *fakeConn
	errs  []error
	calls int
	names []string
	opts  []dbdriver.Options
}

func (f *fakeFactory) GetDriver(_ context.Context, name string, opts dbdriver.Options) (dbdriver.Connection, error) {
	f.calls++
	f.names = append(f.names, name)
	f.opts = append(f.opts, opts)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return f.conn, nil
}

func staticParams(p config.Params) func() (config.Params, error) {
	return func() (config.Params, error) { return p, nil }
}

var fwParams = config.Params{
	Driver:   "mysql",
	Host:     "db",
	User:     "tester",
	Password: "secret",
	Prefix:   "jos_",
	Database: "test_fw",
}

func newTestManager(params config.Params, factory *fakeFactory) *testdb.Manager {
	return testdb.NewManager(
		testdb.WithFactory(factory),
		testdb.WithParamsLoader(staticParams(params)),
	)
}

func connected(t *testing.T, driver string) (*testdb.Manager, *fakeConn) {
	t.Helper()
	params := fwParams
	params.Driver = driver
	conn := &fakeConn{name: driver}
	m := newTestManager(params, &fakeFactory{conn: conn})
	_, err := m.Connection(context.Background())
	require.NoError(t, err)
	return m, conn
}

func execFailure(query, msg string) error {
	return &dbdriver.ExecutionFailure{Query: query, Err: errors.New(msg)}
}

func TestManager_ConnectionFromEnvironment(t *testing.T) {
	t.Setenv(ciutil.EnvTestDBDriver, "")
	t.Setenv(ciutil.EnvTestDBHost, "db")
	t.Setenv(ciutil.EnvTestDBUser, "tester")
	t.Setenv(ciutil.EnvTestDBPassword, "")
	t.Setenv(ciutil.EnvTestDBDatabase, "test_fw")
	t.Setenv(ciutil.EnvTestDBTablePrefix, "")

	factory := &fakeFactory{conn: &fakeConn{name: "mysql"}}
	m := testdb.NewManager(testdb.WithFactory(factory))

	conn, err := m.Connection(context.Background())
	require.NoError(t, err)
	assert.Same(t, factory.conn, conn)

	require.Len(t, factory.names, 1)
	assert.Equal(t, "mysql", factory.names[0])
	assert.Equal(t, dbdriver.Options{
		Host:     "db",
		User:     "tester",
		Database: "test_fw",
		Select:   false,
	}, factory.opts[0])

	name, err := m.DBName()
	require.NoError(t, err)
	assert.Equal(t, "test_fw", name)
}

func TestManager_MissingCredentials(t *testing.T) {
	t.Setenv(ciutil.EnvTestDBHost, "db")
	t.Setenv(ciutil.EnvTestDBUser, "")
	t.Setenv(ciutil.EnvTestDBDatabase, "test_fw")

	factory := &fakeFactory{conn: &fakeConn{name: "mysql"}}
	m := testdb.NewManager(testdb.WithFactory(factory))

	_, err := m.Connection(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, testdb.ErrMissingCredentials)
	assert.Contains(t, err.Error(), ciutil.EnvTestDBUser)
	assert.Zero(t, factory.calls, "no connection attempt without credentials")

	_, err = m.DBName()
	assert.ErrorIs(t, err, testdb.ErrParamsNotResolved)
}

func TestManager_ConnectionIsCreatedOnce(t *testing.T) {
	loads := 0
	factory := &fakeFactory{conn: &fakeConn{name: "mysql"}}
	m := testdb.NewManager(
		testdb.WithFactory(factory),
		testdb.WithParamsLoader(func() (config.Params, error) {
			loads++
			return fwParams, nil
		}),
	)

	first, err := m.Connection(context.Background())
	require.NoError(t, err)
	second, err := m.Connection(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, factory.calls)
	assert.Equal(t, 1, loads)
}

func TestManager_FactoryFailureAllowsRetry(t *testing.T) {
	refused := errors.New("connection refused")
	factory := &fakeFactory{conn: &fakeConn{name: "mysql"}, errs: []error{refused}}
	m := newTestManager(fwParams, factory)

	_, err := m.Connection(context.Background())
	require.ErrorIs(t, err, refused)

	// Parameters are resolved even though the connection is not.
	name, err := m.DBName()
	require.NoError(t, err)
	assert.Equal(t, "test_fw", name)
	assert.ErrorIs(t, m.CreateDatabase(context.Background()), testdb.ErrConnectionNotInitialised)

	conn, err := m.Connection(context.Background())
	require.NoError(t, err)
	assert.Same(t, factory.conn, conn)
	assert.Equal(t, 2, factory.calls)
}

func TestManager_OperationsRequireConnection(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(fwParams, &fakeFactory{conn: &fakeConn{name: "mysql"}})

	ops := map[string]func() error{
		"CreateDatabase": func() error { return m.CreateDatabase(ctx) },
		"DropDatabase":   func() error { return m.DropDatabase(ctx) },
		"ClearTables":    func() error { return m.ClearTables(ctx) },
		"SelectDatabase": func() error { return m.SelectDatabase(ctx) },
		"Migrate":        func() error { return m.Migrate(ctx, nil, ".") },
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			err := op()
			assert.ErrorIs(t, err, testdb.ErrConnectionNotInitialised)
			assert.Contains(t, err.Error(), name)
		})
	}

	_, err := m.DBName()
	assert.ErrorIs(t, err, testdb.ErrParamsNotResolved)
	_, err = m.Params()
	assert.ErrorIs(t, err, testdb.ErrParamsNotResolved)
}

func TestManager_CreateDatabase(t *testing.T) {
	t.Run("creates with configured owner", func(t *testing.T) {
		m, conn := connected(t, "mysql")

		require.NoError(t, m.CreateDatabase(context.Background()))
		assert.Equal(t, [][2]string{{"test_fw", "tester"}}, conn.created)
	})

	tests := []struct {
		name      string
		driver    string
		msg       string
		swallowed bool
	}{
		{
			name:      "mysql already exists",
			driver:    "mysql",
			msg:       "Error 1007 (HY000): Can't create database 'test_fw'; database exists",
			swallowed: true,
		},
		{
			name:      "pgsql already exists",
			driver:    "pgsql",
			msg:       `ERROR: database "test_fw" already exists (SQLSTATE 42P04)`,
			swallowed: true,
		},
		{
			name:      "unknown driver uses mysql wording",
			driver:    "custom",
			msg:       "Can't create database 'test_fw'; database exists",
			swallowed: true,
		},
		{
			name:   "pgsql wording on mysql",
			driver: "mysql",
			msg:    `database "test_fw" already exists`,
		},
		{
			name:   "other database name",
			driver: "mysql",
			msg:    "Can't create database 'other'; database exists",
		},
		{
			name:   "access denied",
			driver: "mysql",
			msg:    "Error 1044 (42000): Access denied for user 'tester'@'%' to database 'test_fw'",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, conn := connected(t, tc.driver)
			conn.createErr = execFailure("CREATE DATABASE", tc.msg)

			err := m.CreateDatabase(context.Background())
			if tc.swallowed {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Same(t, conn.createErr, err, "failure propagates unchanged")
		})
	}

	t.Run("only statement failures are matched", func(t *testing.T) {
		m, conn := connected(t, "mysql")
		conn.createErr = errors.New("Can't create database 'test_fw'; database exists")

		assert.Error(t, m.CreateDatabase(context.Background()))
	})
}

func TestManager_DropDatabase(t *testing.T) {
	t.Run("executes quoted drop", func(t *testing.T) {
		m, conn := connected(t, "mysql")

		require.NoError(t, m.DropDatabase(context.Background()))
		assert.Equal(t, []string{"DROP DATABASE `test_fw`"}, conn.execs)
	})

	tests := []struct {
		name      string
		driver    string
		msg       string
		swallowed bool
	}{
		{
			name:      "mysql does not exist",
			driver:    "mysql",
			msg:       "Error 1008 (HY000): Can't drop database 'test_fw'; database doesn't exist",
			swallowed: true,
		},
		{
			name:      "pgsql does not exist",
			driver:    "pgsql",
			msg:       `ERROR: database "test_fw" does not exist (SQLSTATE 3D000)`,
			swallowed: true,
		},
		{
			name:   "database in use",
			driver: "pgsql",
			msg:    `ERROR: database "test_fw" is being accessed by other users (SQLSTATE 55006)`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, conn := connected(t, tc.driver)
			conn.execErr = execFailure("DROP DATABASE", tc.msg)

			err := m.DropDatabase(context.Background())
			if tc.swallowed {
				assert.NoError(t, err)
				return
			}
			assert.Same(t, conn.execErr, err)
		})
	}

	t.Run("repeated drop is harmless", func(t *testing.T) {
		m, conn := connected(t, "mysql")
		require.NoError(t, m.DropDatabase(context.Background()))

		conn.execErr = execFailure("DROP DATABASE", "Can't drop database 'test_fw'; database doesn't exist")
		assert.NoError(t, m.DropDatabase(context.Background()))
		assert.Len(t, conn.execs, 2)
	})
}

func TestManager_ClearTables(t *testing.T) {
	t.Run("truncates in reported order", func(t *testing.T) {
		m, conn := connected(t, "mysql")
		conn.tables = []string{"jos_users", "jos_content", "jos_assets"}

		require.NoError(t, m.ClearTables(context.Background()))
		assert.Equal(t, conn.tables, conn.truncated)
	})

	t.Run("no tables", func(t *testing.T) {
		m, conn := connected(t, "mysql")

		require.NoError(t, m.ClearTables(context.Background()))
		assert.Empty(t, conn.truncated)
	})

	t.Run("stops at first failure", func(t *testing.T) {
		m, conn := connected(t, "mysql")
		conn.tables = []string{"a", "b", "c"}
		failure := execFailure("TRUNCATE TABLE `b`", "table is locked")
		conn.truncateErr = map[string]error{"b": failure}

		err := m.ClearTables(context.Background())
		assert.Same(t, failure, err)
		assert.Equal(t, []string{"a"}, conn.truncated)
	})

	t.Run("listing failure", func(t *testing.T) {
		m, conn := connected(t, "mysql")
		conn.tablesErr = errors.New("listing failed")

		assert.ErrorIs(t, m.ClearTables(context.Background()), conn.tablesErr)
	})
}

func TestManager_ParamsAreCopies(t *testing.T) {
	m, _ := connected(t, "mysql")

	p, err := m.Params()
	require.NoError(t, err)
	assert.Equal(t, "test_fw", p.Database)

	p.Database = "mutated"
	again, err := m.Params()
	require.NoError(t, err)
	assert.Equal(t, "test_fw", again.Database)
}

func TestManager_SelectDatabase(t *testing.T) {
	m, conn := connected(t, "mysql")
	require.NoError(t, m.SelectDatabase(context.Background()))
	assert.Equal(t, []string{"test_fw"}, conn.selected)

	conn.selectErr = errors.New("unknown database")
	err := m.SelectDatabase(context.Background())
	assert.ErrorIs(t, err, conn.selectErr)
}

func TestManager_CloseAndReset(t *testing.T) {
	loads := 0
	conn := &fakeConn{name: "mysql"}
	factory := &fakeFactory{conn: conn}
	m := testdb.NewManager(
		testdb.WithFactory(factory),
		testdb.WithParamsLoader(func() (config.Params, error) {
			loads++
			return fwParams, nil
		}),
	)
	ctx := context.Background()

	require.NoError(t, m.Close(), "closing an unopened manager is a no-op")

	_, err := m.Connection(ctx)
	require.NoError(t, err)
	require.NoError(t, m.Close())
	assert.Equal(t, 1, conn.closed)
	assert.ErrorIs(t, m.ClearTables(ctx), testdb.ErrConnectionNotInitialised)

	_, err = m.Connection(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, factory.calls)
	assert.Equal(t, 1, loads, "close keeps the parameters")

	require.NoError(t, m.Reset())
	_, err = m.DBName()
	assert.ErrorIs(t, err, testdb.ErrParamsNotResolved)

	_, err = m.Connection(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, loads)
}

func TestManager_Teardown(t *testing.T) {
	m, conn := connected(t, "pgsql")

	require.NoError(t, m.Teardown(context.Background()))
	assert.Equal(t, []string{""}, conn.selected)
	assert.Equal(t, []string{"DROP DATABASE `test_fw`"}, conn.execs)
	assert.Equal(t, 1, conn.closed)
}

func TestManager_LogsSwallowedFailures(t *testing.T) {
	log, buf := logger.GetTestLogger(t)
	conn := &fakeConn{
		name:      "mysql",
		createErr: execFailure("CREATE DATABASE", "Can't create database 'test_fw'; database exists"),
	}
	m := testdb.NewManager(
		testdb.WithFactory(&fakeFactory{conn: conn}),
		testdb.WithParamsLoader(staticParams(fwParams)),
		testdb.WithLogger(log),
	)

	_, err := m.Connection(context.Background())
	require.NoError(t, err)
	require.NoError(t, m.CreateDatabase(context.Background()))

	logger.AssertLogContains(t, buf, "test database already exists")
	logger.AssertLogField(t, buf, "database", "test_fw")
	assert.NotContains(t, buf.String(), "secret", "password is masked")
}
