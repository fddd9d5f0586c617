package testdb

import (
	"context"
	"errors"
	"testing"

	"github.com/phrazzld/testkit/internal/platform/logger"
)

// Setup connects to the test database server, creates and selects the test
// database, and drops it again when t finishes. The test is skipped when the
// TEST_DB_* credentials are not configured. Options are applied after the
// defaults, which log to t.
func Setup(t testing.TB, opts ...Option) *Manager {
	t.Helper()

	m := NewManager(append([]Option{WithLogger(logger.NewTestOutputLogger(t))}, opts...)...)
	ctx := context.Background()

	if _, err := m.Connection(ctx); err != nil {
		if errors.Is(err, ErrMissingCredentials) {
			t.Skipf("Skipping database test: %v", err)
		}
		t.Fatalf("Failed to connect to test database server: %v", err)
	}

	if err := m.CreateDatabase(ctx); err != nil {
		_ = m.Close()
		t.Fatalf("Failed to create test database: %v", err)
	}

	t.Cleanup(func() {
		if err := m.Teardown(context.Background()); err != nil {
			t.Errorf("Failed to tear down test database: %v", err)
		}
	})

	if err := m.SelectDatabase(ctx); err != nil {
		t.Fatalf("Failed to select test database: %v", err)
	}

	return m
}
