package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/phrazzld/testkit/internal/ciutil"
)

// CIHandler is a custom slog.Handler that adds CI environment metadata
// and source code location to log records.
type CIHandler struct {
	handler   slog.Handler
	metadata  map[string]string
	addSource bool
}

// NewCIHandler creates a new CIHandler writing JSON to out, adding CI metadata
// and source information to each log record.
func NewCIHandler(out io.Writer, opts *slog.HandlerOptions) *CIHandler {
	var handlerOpts slog.HandlerOptions
	if opts != nil {
		handlerOpts = *opts
	}

	return &CIHandler{
		handler:   slog.NewJSONHandler(out, &handlerOpts),
		metadata:  getCIMetadata(),
		addSource: handlerOpts.AddSource,
	}
}

// Enabled implements the slog.Handler interface.
func (h *CIHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// WithAttrs implements the slog.Handler interface.
func (h *CIHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CIHandler{
		handler:   h.handler.WithAttrs(attrs),
		metadata:  h.metadata,
		addSource: h.addSource,
	}
}

// WithGroup implements the slog.Handler interface.
func (h *CIHandler) WithGroup(name string) slog.Handler {
	return &CIHandler{
		handler:   h.handler.WithGroup(name),
		metadata:  h.metadata,
		addSource: h.addSource,
	}
}

// Handle implements the slog.Handler interface.
func (h *CIHandler) Handle(ctx context.Context, record slog.Record) error {
	enhanced := record.Clone()

	if h.addSource && record.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{record.PC})
		frame, _ := frames.Next()
		enhanced.AddAttrs(
			slog.String("source_file", frame.File),
			slog.Int("source_line", frame.Line),
			slog.String("source_func", frame.Function),
		)
	}

	for key, value := range h.metadata {
		enhanced.AddAttrs(slog.String(key, value))
	}

	nanoseconds := enhanced.Time.UnixNano() % int64(time.Second)
	enhanced.AddAttrs(slog.Int64("timestamp_nano", nanoseconds))

	return h.handler.Handle(ctx, enhanced)
}

// getCIMetadata collects the identifying variables of the current CI run.
func getCIMetadata() map[string]string {
	metadata := map[string]string{}
	if !ciutil.IsCI() {
		return metadata
	}

	metadata["ci"] = "true"
	optional := map[string]string{
		"github_run_id":   "GITHUB_RUN_ID",
		"github_workflow": "GITHUB_WORKFLOW",
		"github_sha":      "GITHUB_SHA",
		"gitlab_job_id":   "CI_JOB_ID",
		"gitlab_pipeline": "CI_PIPELINE_ID",
	}
	for key, envVar := range optional {
		if v := os.Getenv(envVar); v != "" {
			metadata[key] = v
		}
	}
	return metadata
}

// isInCIEnvironment reports whether test helpers should use the CI handler.
func isInCIEnvironment() bool {
	return ciutil.IsCI()
}
