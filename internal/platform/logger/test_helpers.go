package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// TestLogBuffer is a thread-safe buffer for capturing log output in tests.
type TestLogBuffer struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

// Write implements io.Writer for TestLogBuffer.
func (b *TestLogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// String returns the buffer contents as a string.
func (b *TestLogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Reset clears the buffer contents.
func (b *TestLogBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

// GetLogEntries parses the buffer contents as JSON log entries.
// Each line is assumed to be a separate JSON log entry.
func (b *TestLogBuffer) GetLogEntries() ([]map[string]interface{}, error) {
	lines := strings.Split(b.String(), "\n")
	entries := make([]map[string]interface{}, 0, len(lines))

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}

		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// GetTestLogger creates a debug-level JSON logger writing to a fresh buffer.
func GetTestLogger(t *testing.T) (*slog.Logger, *TestLogBuffer) {
	t.Helper()

	logBuf := &TestLogBuffer{}
	handler := slog.NewJSONHandler(logBuf, &slog.HandlerOptions{Level: slog.LevelDebug})

	return slog.New(handler), logBuf
}

// SetupTestLogger installs a buffer-backed logger as the default logger for the
// duration of the test.
func SetupTestLogger(t *testing.T, opts *slog.HandlerOptions) (*TestLogBuffer, *slog.Logger) {
	t.Helper()

	logBuf := &TestLogBuffer{}
	originalLogger := slog.Default()

	if opts == nil {
		opts = &slog.HandlerOptions{Level: slog.LevelDebug}
	}

	var handler slog.Handler
	if isInCIEnvironment() {
		handler = NewCIHandler(logBuf, opts)
	} else {
		handler = slog.NewJSONHandler(logBuf, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	t.Cleanup(func() {
		slog.SetDefault(originalLogger)
	})

	return logBuf, logger
}

// AssertLogContains checks if the log buffer contains specific content.
func AssertLogContains(t *testing.T, logBuf *TestLogBuffer, content string) {
	t.Helper()

	logs := logBuf.String()
	if !strings.Contains(logs, content) {
		t.Errorf("Expected log to contain %q, but it doesn't.\nLogs:\n%s", content, logs)
	}
}

// AssertLogField checks if any log entry contains field with the expected value.
func AssertLogField(t *testing.T, logBuf *TestLogBuffer, field string, expected interface{}) {
	t.Helper()

	entries, err := logBuf.GetLogEntries()
	if err != nil {
		t.Fatalf("Failed to parse log entries: %v", err)
	}

	if len(entries) == 0 {
		t.Fatalf("No log entries found")
	}

	for _, entry := range entries {
		if value, ok := entry[field]; ok && value == expected {
			return
		}
	}

	t.Errorf("Expected log entries to contain field %q with value %v, but it wasn't found", field, expected)
}

// TestLogPipe forwards everything written to it to the test's log output.
type TestLogPipe struct {
	t testing.TB
}

// NewTestLogPipe creates a new TestLogPipe.
func NewTestLogPipe(t testing.TB) *TestLogPipe {
	return &TestLogPipe{t: t}
}

// Write implements io.Writer for TestLogPipe.
func (p *TestLogPipe) Write(data []byte) (int, error) {
	p.t.Helper()
	p.t.Log(strings.TrimRight(string(data), "\n"))
	return len(data), nil
}

// NewTestOutputLogger returns a debug-level logger that writes to the test's log output.
func NewTestOutputLogger(t testing.TB) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelDebug}
	pipe := NewTestLogPipe(t)
	if isInCIEnvironment() {
		return slog.New(NewCIHandler(pipe, opts))
	}
	return slog.New(slog.NewTextHandler(pipe, opts))
}
