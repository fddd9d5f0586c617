package fixture

import (
	"context"
	"errors"

	"github.com/phrazzld/testkit/internal/platform/logger"
	"github.com/phrazzld/testkit/internal/testdb"
)

// DatabaseSuite is a Suite backed by a test database. The database is created
// and selected before DoSetUpSuite, its tables are cleared after DoTearDown,
// and it is dropped after DoTearDownSuite. The suite is skipped when the
// TEST_DB_* credentials are not configured.
type DatabaseSuite struct {
	Suite

	// ManagerOptions are applied when the manager is created.
	ManagerOptions []testdb.Option

	// DB is available from DoSetUpSuite on.
	DB *testdb.Manager
}

// SetupSuite implements suite.SetupAllSuite.
func (s *DatabaseSuite) SetupSuite() {
	s.Require().NoError(s.checkBound())

	t := s.T()
	ctx := context.Background()

	opts := append([]testdb.Option{testdb.WithLogger(logger.NewTestOutputLogger(t))}, s.ManagerOptions...)
	m := testdb.NewManager(opts...)

	if _, err := m.Connection(ctx); err != nil {
		if errors.Is(err, testdb.ErrMissingCredentials) {
			t.Skipf("Skipping database suite: %v", err)
		}
		s.Require().NoError(err, "connect to test database server")
	}

	if err := m.CreateDatabase(ctx); err != nil {
		_ = m.Close()
		s.Require().NoError(err, "create test database")
	}
	if err := m.SelectDatabase(ctx); err != nil {
		_ = m.Teardown(ctx)
		s.Require().NoError(err, "select test database")
	}
	s.DB = m

	s.Suite.SetupSuite()
}

// TearDownTest implements suite.TearDownTestSuite.
func (s *DatabaseSuite) TearDownTest() {
	s.Suite.TearDownTest()

	if s.DB != nil {
		s.Require().NoError(s.DB.ClearTables(context.Background()), "clear test tables")
	}
}

// TearDownSuite implements suite.TearDownAllSuite.
func (s *DatabaseSuite) TearDownSuite() {
	s.Suite.TearDownSuite()

	if s.DB != nil {
		s.NoError(s.DB.Teardown(context.Background()), "drop test database")
	}
}
