// Package testdb manages the lifecycle of the database that integration tests
// run against.
//
// A Manager resolves its connection parameters from the TEST_DB_* environment
// variables, opens a server connection without selecting a schema, and then
// offers idempotent create, drop and clear operations on the configured test
// database:
//
//	m := testdb.NewManager()
//	if _, err := m.Connection(ctx); err != nil {
//		return err
//	}
//	if err := m.CreateDatabase(ctx); err != nil {
//		return err
//	}
//
// Tests usually call Setup instead, which performs the sequence above,
// switches onto the test database and registers its removal with t.Cleanup.
// When the credentials are not configured Setup skips the test.
package testdb
