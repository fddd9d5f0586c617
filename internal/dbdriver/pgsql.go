package dbdriver

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

// DriverPgSQL is the identifier of the PostgreSQL driver.
const DriverPgSQL = "pgsql"

// pgMaintenanceDatabase is connected to while no database is selected.
const pgMaintenanceDatabase = "postgres"

type pgsqlDialect struct{}

func openPgSQL(ctx context.Context, opts Options) (Connection, error) {
	return newSQLConn(ctx, pgsqlDialect{}, opts)
}

func (pgsqlDialect) name() string { return DriverPgSQL }

func (pgsqlDialect) config(opts Options, database string) (*pgx.ConnConfig, error) {
	cfg, err := pgx.ParseConfig("")
	if err != nil {
		return nil, fmt.Errorf("failed to build pgx config: %w", err)
	}

	host := opts.Host
	if h, p, err := net.SplitHostPort(opts.Host); err == nil && !strings.HasPrefix(opts.Host, "/") {
		port, err := strconv.ParseUint(p, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid port in host %q: %w", opts.Host, err)
		}
		host = h
		cfg.Port = uint16(port)
	}

	if database == "" {
		database = pgMaintenanceDatabase
	}

	cfg.Host = host
	cfg.User = opts.User
	cfg.Password = opts.Password
	cfg.Database = database
	cfg.Fallbacks = nil

	return cfg, nil
}

func (d pgsqlDialect) open(opts Options, database string) (*sql.DB, error) {
	cfg, err := d.config(opts, database)
	if err != nil {
		return nil, err
	}
	return stdlib.OpenDB(*cfg), nil
}

func (pgsqlDialect) quote(name string) string { return quoteWith(name, `"`) }

func (pgsqlDialect) createDatabase(quotedName, quotedUser string) string {
	return "CREATE DATABASE " + quotedName + " OWNER " + quotedUser
}

func (pgsqlDialect) tablesQuery() string {
	return "SELECT table_name FROM information_schema.tables" +
		" WHERE table_type = 'BASE TABLE'" +
		" AND table_schema = current_schema()" +
		" ORDER BY table_name"
}

func (pgsqlDialect) truncate(quotedTable string) string {
	return "TRUNCATE TABLE " + quotedTable + " RESTART IDENTITY"
}
