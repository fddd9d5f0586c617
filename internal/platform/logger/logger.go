package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/phrazzld/testkit/internal/ciutil"
)

// Config holds the logger settings.
type Config struct {
	// Level is one of debug, info, warn, error (case-insensitive).
	Level string
	// Format is either json or text. Empty means json.
	Format string
	// Output defaults to os.Stderr so that it never mixes with command output.
	Output io.Writer
}

type contextKey struct{}

// ParseLevel converts a textual level into a slog.Level. The second return
// value is false when the text is not a recognized level, in which case
// slog.LevelInfo is returned.
func ParseLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// Setup initializes the logging system based on the provided configuration.
// It creates a structured logger with the appropriate level and sets it as the
// default logger. Under CI the JSON output goes through a CIHandler.
func Setup(cfg Config) (*slog.Logger, error) {
	level, ok := ParseLevel(cfg.Level)
	if !ok {
		// Create a temporary logger to output the warning
		tmpLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		tmpLogger.Warn("invalid log level configured, using default level",
			"configured_level", cfg.Level,
			"default_level", "info")
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch {
	case strings.EqualFold(cfg.Format, "text"):
		handler = slog.NewTextHandler(out, opts)
	case ciutil.IsCI():
		handler = NewCIHandler(out, opts)
	default:
		handler = slog.NewJSONHandler(out, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger, nil
}

// WithLogger returns a copy of ctx carrying logger. It panics on a nil logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if logger == nil {
		// ALLOW-PANIC: programming error
		panic("logger: nil logger")
	}
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext returns the logger stored in ctx, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	return FromContextOrDefault(ctx, slog.Default())
}

// FromContextOrDefault returns the logger stored in ctx, or fallback.
func FromContextOrDefault(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if ctx == nil {
		return fallback
	}
	if logger, ok := ctx.Value(contextKey{}).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return fallback
}
