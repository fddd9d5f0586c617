package dbdriver

import (
	"context"
	"database/sql"
	"net"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// DriverMySQL is the identifier of the MySQL/MariaDB driver.
const DriverMySQL = "mysql"

const mysqlDefaultPort = "3306"

type mysqlDialect struct{}

func openMySQL(ctx context.Context, opts Options) (Connection, error) {
	return newSQLConn(ctx, mysqlDialect{}, opts)
}

func (mysqlDialect) name() string { return DriverMySQL }

// config builds the driver configuration. Hosts starting with a slash are
// unix socket paths.
func (mysqlDialect) config(opts Options, database string) *mysql.Config {
	cfg := mysql.NewConfig()
	cfg.User = opts.User
	cfg.Passwd = opts.Password
	cfg.DBName = database
	cfg.ParseTime = true

	switch {
	case strings.HasPrefix(opts.Host, "/"):
		cfg.Net = "unix"
		cfg.Addr = opts.Host
	default:
		cfg.Net = "tcp"
		cfg.Addr = opts.Host
		if _, _, err := net.SplitHostPort(opts.Host); err != nil {
			cfg.Addr = net.JoinHostPort(opts.Host, mysqlDefaultPort)
		}
	}

	return cfg
}

func (d mysqlDialect) open(opts Options, database string) (*sql.DB, error) {
	connector, err := mysql.NewConnector(d.config(opts, database))
	if err != nil {
		return nil, err
	}
	return sql.OpenDB(connector), nil
}

func (mysqlDialect) quote(name string) string { return quoteWith(name, "`") }

func (mysqlDialect) createDatabase(quotedName, _ string) string {
	return "CREATE DATABASE " + quotedName + " CHARACTER SET utf8mb4"
}

func (mysqlDialect) tablesQuery() string { return "SHOW TABLES" }

func (mysqlDialect) truncate(quotedTable string) string {
	return "TRUNCATE TABLE " + quotedTable
}
