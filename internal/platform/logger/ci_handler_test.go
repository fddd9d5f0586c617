package logger

import (
	"context"
	"log/slog"
	"testing"

	"github.com/phrazzld/testkit/internal/ciutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCIHandler_AddsMetadata(t *testing.T) {
	t.Setenv(ciutil.EnvCI, "true")
	t.Setenv("GITHUB_RUN_ID", "12345")

	buf := &TestLogBuffer{}
	l := slog.New(NewCIHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug, AddSource: true}))
	l.InfoContext(context.Background(), "database created", "database", "test_fw")

	entries, err := buf.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, "database created", entry["msg"])
	assert.Equal(t, "test_fw", entry["database"])
	assert.Equal(t, "true", entry["ci"])
	assert.Equal(t, "12345", entry["github_run_id"])
	assert.Contains(t, entry, "timestamp_nano")
	assert.Contains(t, entry, "source_file")
}

func TestCIHandler_WithAttrsAndGroup(t *testing.T) {
	t.Setenv(ciutil.EnvCI, "")

	buf := &TestLogBuffer{}
	var h slog.Handler = NewCIHandler(buf, nil)
	h = h.WithAttrs([]slog.Attr{slog.String("component", "testdb")})
	h = h.WithGroup("op")

	slog.New(h).Info("truncate", "table", "users")

	entries, err := buf.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "testdb", entries[0]["component"])

	group, ok := entries[0]["op"].(map[string]interface{})
	require.True(t, ok, "group should be rendered as an object")
	assert.Equal(t, "users", group["table"])
}

func TestCIHandler_Enabled(t *testing.T) {
	h := NewCIHandler(&TestLogBuffer{}, &slog.HandlerOptions{Level: slog.LevelWarn})
	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}
