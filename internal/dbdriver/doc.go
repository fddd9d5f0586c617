// Package dbdriver defines the database connection contract used by the test
// database manager and provides database/sql backed implementations for MySQL
// (go-sql-driver/mysql), PostgreSQL (pgx) and SQLite (modernc.org/sqlite).
//
// A Factory turns a driver identifier plus Options into a Connection. Every
// statement failure surfaces as *ExecutionFailure carrying the driver's
// message text, which callers may inspect to recognise benign failures.
package dbdriver
