package webapp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/phrazzld/testkit/internal/platform/logger"
)

// RequestIDHeader carries the request ID in requests and responses.
const RequestIDHeader = "X-Request-ID"

// ErrClosed is returned when writing after Close.
var ErrClosed = errors.New("application closed")

// HTTPRuntime runs an Application against an HTTP exchange. Headers are
// buffered until the first body write or Close.
type HTTPRuntime struct {
	w      http.ResponseWriter
	r      *http.Request
	status int
	sent   bool
	closed bool
	code   int
}

// NewHTTPRuntime returns a runtime writing to w in response to r.
func NewHTTPRuntime(w http.ResponseWriter, r *http.Request) *HTTPRuntime {
	return &HTTPRuntime{w: w, r: r, status: http.StatusOK}
}

// Header implements Runtime. Status lines ("HTTP/1.1 404 Not Found") set the
// status code; other lines are "Name: value" pairs.
func (rt *HTTPRuntime) Header(line string, replace bool, code int) {
	if rt.sent {
		return
	}

	if strings.HasPrefix(line, "HTTP/") {
		if code == 0 {
			if fields := strings.Fields(line); len(fields) > 1 {
				code, _ = strconv.Atoi(fields[1])
			}
		}
		if code > 0 {
			rt.status = code
		}
		return
	}

	name, value, ok := strings.Cut(line, ":")
	if !ok {
		return
	}
	name, value = strings.TrimSpace(name), strings.TrimSpace(value)
	if replace {
		rt.w.Header().Set(name, value)
	} else {
		rt.w.Header().Add(name, value)
	}
	if code > 0 {
		rt.status = code
	}
}

// HeadersSent implements Runtime.
func (rt *HTTPRuntime) HeadersSent() bool { return rt.sent }

// ConnectionAlive implements Runtime.
func (rt *HTTPRuntime) ConnectionAlive() bool { return rt.r.Context().Err() == nil }

// Close implements Runtime. Buffered headers are flushed and later writes
// fail with ErrClosed.
func (rt *HTTPRuntime) Close(code int) {
	rt.flush()
	rt.closed = true
	rt.code = code
}

// Closed returns the close code and whether Close was called.
func (rt *HTTPRuntime) Closed() (int, bool) { return rt.code, rt.closed }

// Write implements Runtime.
func (rt *HTTPRuntime) Write(p []byte) (int, error) {
	if rt.closed {
		return 0, ErrClosed
	}
	rt.flush()
	return rt.w.Write(p)
}

func (rt *HTTPRuntime) flush() {
	if rt.sent {
		return
	}
	rt.w.WriteHeader(rt.status)
	rt.sent = true
}

type requestIDKey struct{}

// RequestIDFromContext returns the request ID stored by RequestID.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestID tags every request with a UUID, reusing a valid incoming
// X-Request-ID, and stores a logger carrying it in the request context.
func RequestID(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if _, err := uuid.Parse(id); err != nil {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)

			reqLog := log.With(slog.String("request_id", id))
			reqLog.Debug("request started",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr))

			ctx := context.WithValue(r.Context(), requestIDKey{}, id)
			ctx = logger.WithLogger(ctx, reqLog)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Handler serves every request with an Application built around the executor
// newExecutor returns for it.
func Handler(newExecutor func(r *http.Request) Executor, log *slog.Logger) http.Handler {
	if log == nil {
		log = slog.Default()
	}

	router := chi.NewRouter()
	router.Use(chimiddleware.RealIP)
	router.Use(RequestID(log))
	router.Use(chimiddleware.Recoverer)

	router.HandleFunc("/*", func(w http.ResponseWriter, r *http.Request) {
		reqLog := logger.FromContextOrDefault(r.Context(), log)
		rt := NewHTTPRuntime(w, r)
		app := New(rt, newExecutor(r), WithLogger(reqLog))

		if err := app.Execute(r.Context()); err != nil {
			reqLog.Error("application failed", slog.String("error", err.Error()))
			if !rt.HeadersSent() {
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}
	})

	return router
}
