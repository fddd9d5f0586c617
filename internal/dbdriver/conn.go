package dbdriver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ConnectTimeout bounds the ping performed when a connection is opened.
const ConnectTimeout = 5 * time.Second

// PrefixPlaceholder is replaced with the table prefix by Exec.
const PrefixPlaceholder = "#__"

// dialect captures what differs between the database/sql backed drivers.
type dialect interface {
	name() string
	// open returns a handle on database; "" means no database selected.
	open(opts Options, database string) (*sql.DB, error)
	quote(name string) string
	// createDatabase returns the statement, or "" when nothing needs to run.
	createDatabase(quotedName, quotedUser string) string
	tablesQuery() string
	truncate(quotedTable string) string
}

// execInterceptor lets a dialect handle statements its engine does not support.
type execInterceptor interface {
	intercept(ctx context.Context, c *sqlConn, query string) (handled bool, err error)
}

// sqlConn implements Connection on top of database/sql.
type sqlConn struct {
	d    dialect
	opts Options
	db   *sql.DB
}

func newSQLConn(ctx context.Context, d dialect, opts Options) (*sqlConn, error) {
	database := ""
	if opts.Select {
		database = opts.Database
	}

	db, err := openAndPing(ctx, d, opts, database)
	if err != nil {
		return nil, err
	}

	return &sqlConn{d: d, opts: opts, db: db}, nil
}

func openAndPing(ctx context.Context, d dialect, opts Options, database string) (*sql.DB, error) {
	db, err := d.open(opts, database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database handle: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, ConnectTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("database ping failed: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	return db, nil
}

func (c *sqlConn) Name() string { return c.d.name() }

func (c *sqlConn) DB() *sql.DB { return c.db }

func (c *sqlConn) QuoteName(name string) string { return c.d.quote(name) }

// Exec replaces the prefix placeholder and runs the statement.
func (c *sqlConn) Exec(ctx context.Context, query string) error {
	query = ReplacePrefix(query, c.opts.Prefix)

	if ic, ok := c.d.(execInterceptor); ok {
		if handled, err := ic.intercept(ctx, c, query); handled {
			return err
		}
	}

	return c.exec(ctx, query)
}

func (c *sqlConn) exec(ctx context.Context, query string) error {
	_, err := c.db.ExecContext(ctx, query)
	return executionFailure(query, err)
}

func (c *sqlConn) CreateDatabase(ctx context.Context, name, user string) error {
	stmt := c.d.createDatabase(c.d.quote(name), c.d.quote(user))
	if stmt == "" {
		return nil
	}
	return c.exec(ctx, stmt)
}

func (c *sqlConn) TableList(ctx context.Context) ([]string, error) {
	query := c.d.tablesQuery()

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, executionFailure(query, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var tables []string
	for rows.Next() {
		var table string
		if err := rows.Scan(&table); err != nil {
			return nil, executionFailure(query, err)
		}
		tables = append(tables, table)
	}

	if err := rows.Err(); err != nil {
		return nil, executionFailure(query, err)
	}

	return tables, nil
}

func (c *sqlConn) TruncateTable(ctx context.Context, table string) error {
	return c.exec(ctx, c.d.truncate(c.d.quote(table)))
}

func (c *sqlConn) Select(ctx context.Context, database string) error {
	db, err := openAndPing(ctx, c.d, c.opts, database)
	if err != nil {
		return fmt.Errorf("failed to select database %q: %w", database, err)
	}

	old := c.db
	c.db = db
	if old != nil {
		if err := old.Close(); err != nil {
			return fmt.Errorf("failed to close previous handle: %w", err)
		}
	}

	return nil
}

func (c *sqlConn) Close() error {
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	if err != nil && !errors.Is(err, sql.ErrConnDone) {
		return err
	}
	return nil
}

// ReplacePrefix replaces PrefixPlaceholder with prefix everywhere except
// inside single-quoted string literals, so quoted identifiers such as
// `#__users` are rewritten while data is left alone.
func ReplacePrefix(query, prefix string) string {
	if !strings.Contains(query, PrefixPlaceholder) {
		return query
	}

	var b strings.Builder
	b.Grow(len(query))

	inLiteral := false
	for i := 0; i < len(query); i++ {
		ch := query[i]

		if inLiteral {
			b.WriteByte(ch)
			switch {
			case ch == '\\' && i+1 < len(query):
				i++
				b.WriteByte(query[i])
			case ch == '\'':
				inLiteral = false
			}
			continue
		}

		switch {
		case ch == '\'':
			inLiteral = true
			b.WriteByte(ch)
		case strings.HasPrefix(query[i:], PrefixPlaceholder):
			b.WriteString(prefix)
			i += len(PrefixPlaceholder) - 1
		default:
			b.WriteByte(ch)
		}
	}

	return b.String()
}

// quoteWith wraps name in q, doubling any embedded q.
func quoteWith(name string, q string) string {
	return q + strings.ReplaceAll(name, q, q+q) + q
}
