package dbdriver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver
)

// DriverSQLite is the identifier of the SQLite driver.
const DriverSQLite = "sqlite"

// SQLiteMemory names a private in-memory database.
const SQLiteMemory = ":memory:"

var sqliteDropDatabase = regexp.MustCompile(`(?is)^\s*DROP\s+DATABASE\s+"((?:[^"]|"")+)"\s*;?\s*$`)

// sqliteDialect treats the database name as a file path. There is no server
// catalogue, so the Select flag is ignored and the file is opened directly.
type sqliteDialect struct{}

func openSQLite(ctx context.Context, opts Options) (Connection, error) {
	opts.Select = true
	return newSQLConn(ctx, sqliteDialect{}, opts)
}

func (sqliteDialect) name() string { return DriverSQLite }

func (sqliteDialect) open(_ Options, database string) (*sql.DB, error) {
	if database == "" {
		database = SQLiteMemory
	}

	db, err := sql.Open("sqlite", database)
	if err != nil {
		return nil, err
	}
	// In-memory databases are per connection; keep a single one.
	db.SetMaxOpenConns(1)

	return db, nil
}

func (sqliteDialect) quote(name string) string { return quoteWith(name, `"`) }

// createDatabase needs no statement: the file is created when opened.
func (sqliteDialect) createDatabase(string, string) string { return "" }

func (sqliteDialect) tablesQuery() string {
	return "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name"
}

func (sqliteDialect) truncate(quotedTable string) string {
	return "DELETE FROM " + quotedTable
}

// intercept emulates DROP DATABASE by removing the database file. The
// connection moves to a private in-memory database first.
func (sqliteDialect) intercept(ctx context.Context, c *sqlConn, query string) (bool, error) {
	m := sqliteDropDatabase.FindStringSubmatch(query)
	if m == nil {
		return false, nil
	}

	path := strings.ReplaceAll(m[1], `""`, `"`)
	if path == SQLiteMemory {
		return true, nil
	}

	if err := c.Select(ctx, ""); err != nil {
		return true, executionFailure(query, err)
	}

	for _, suffix := range []string{"", "-journal", "-wal", "-shm"} {
		if err := os.Remove(path + suffix); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return true, executionFailure(query, fmt.Errorf("failed to remove %s: %w", path+suffix, err))
		}
	}

	return true, nil
}
