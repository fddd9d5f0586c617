package testdb

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"sync"

	"github.com/pressly/goose/v3"

	"github.com/phrazzld/testkit/internal/dbdriver"
)

// MigrationTableName is the table goose records applied versions in.
const MigrationTableName = "schema_migrations"

var gooseDialects = map[string]string{
	dbdriver.DriverMySQL:  "mysql",
	dbdriver.DriverPgSQL:  "postgres",
	dbdriver.DriverSQLite: "sqlite3",
}

// goose keeps its configuration in package globals.
var gooseMu sync.Mutex

// gooseLogger adapts goose's logger to slog.
type gooseLogger struct {
	logger *slog.Logger
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Info("goose: " + strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// Fatalf logs at error level. goose reports failures through its return
// values as well, so the process is not terminated.
func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Error("goose: " + strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// Migrate applies the goose migrations found in dir of fsys to the database
// the connection currently uses, normally the test database after
// SelectDatabase.
func (m *Manager) Migrate(ctx context.Context, fsys fs.FS, dir string) error {
	if err := m.requireConnection("Migrate"); err != nil {
		return err
	}

	dialect, ok := gooseDialects[m.conn.Name()]
	if !ok {
		return fmt.Errorf("no migration dialect for driver %q", m.conn.Name())
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetLogger(gooseLogger{logger: m.log(ctx)})
	goose.SetTableName(MigrationTableName)
	goose.SetBaseFS(fsys)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	if err := goose.UpContext(ctx, m.conn.DB(), dir); err != nil {
		return fmt.Errorf("failed to apply migrations from %s: %w", dir, err)
	}

	return nil
}
