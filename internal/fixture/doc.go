// Package fixture runs test set-up and tear-down hooks around groups of
// tests.
//
// Suites built on testify embed Suite and define any of DoSetUpSuite,
// DoTearDownSuite, DoSetUp and DoTearDown; they are started with RunSuite.
// Plain tests implement Lifecycle (usually by embedding Base) and are started
// with Run. DatabaseSuite adds a test database that is created for the suite,
// cleared after every test and dropped at the end.
package fixture
