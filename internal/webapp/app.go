package webapp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// Runtime is the host an Application emits its response through.
type Runtime interface {
	// Write emits body content.
	io.Writer
	// Header emits a raw header line. replace asks for any previous header of
	// the same name to be replaced; a non-zero code forces the status code.
	Header(line string, replace bool, code int)
	// HeadersSent reports whether headers can no longer be emitted.
	HeadersSent() bool
	// ConnectionAlive reports whether the client is still connected.
	ConnectionAlive() bool
	// Close ends the application with an exit code.
	Close(code int)
}

// Executor holds the application-specific work of a request.
type Executor interface {
	DoExecute(ctx context.Context, app *Application) error
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, app *Application) error

// DoExecute calls f.
func (f ExecutorFunc) DoExecute(ctx context.Context, app *Application) error {
	return f(ctx, app)
}

// Header is a queued response header.
type Header struct {
	Name    string
	Value   string
	Replace bool
}

// Application queues a response and sends it through its Runtime.
type Application struct {
	runtime  Runtime
	executor Executor
	logger   *slog.Logger

	status  int
	headers []Header
	body    []string
	closed  bool
}

// Option configures an Application.
type Option func(*Application)

// WithLogger sets the application's logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Application) {
		a.logger = l
	}
}

// New returns an Application with status 200 and no headers or body.
func New(rt Runtime, exec Executor, opts ...Option) *Application {
	a := &Application{
		runtime:  rt,
		executor: exec,
		logger:   slog.Default(),
		status:   http.StatusOK,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SetHeader queues a header. With replace, queued headers of the same name
// (compared case-insensitively) are removed first.
func (a *Application) SetHeader(name, value string, replace bool) {
	if replace {
		kept := a.headers[:0]
		for _, h := range a.headers {
			if !strings.EqualFold(h.Name, name) {
				kept = append(kept, h)
			}
		}
		a.headers = kept
	}
	a.headers = append(a.headers, Header{Name: name, Value: value, Replace: replace})
}

// Headers returns a copy of the queued headers.
func (a *Application) Headers() []Header {
	return append([]Header(nil), a.headers...)
}

// ClearHeaders empties the header queue.
func (a *Application) ClearHeaders() {
	a.headers = nil
}

// SetStatus sets the response status code.
func (a *Application) SetStatus(code int) {
	a.status = code
}

// Status returns the response status code.
func (a *Application) Status() int {
	return a.status
}

// SetBody replaces the body.
func (a *Application) SetBody(content string) {
	a.body = []string{content}
}

// AppendBody adds content to the end of the body.
func (a *Application) AppendBody(content string) {
	a.body = append(a.body, content)
}

// Body returns the body.
func (a *Application) Body() string {
	return strings.Join(a.body, "")
}

// SendHeaders emits the status line and the queued headers unless the runtime
// has already sent headers.
func (a *Application) SendHeaders() {
	if a.runtime.HeadersSent() {
		return
	}

	a.runtime.Header(fmt.Sprintf("HTTP/1.1 %d %s", a.status, http.StatusText(a.status)), true, a.status)
	for _, h := range a.headers {
		a.runtime.Header(h.Name+": "+h.Value, h.Replace, 0)
	}
}

// Respond sends the headers and writes the body. It does nothing once the
// application is closed.
func (a *Application) Respond() error {
	if a.closed {
		return nil
	}

	a.SendHeaders()

	if _, err := io.WriteString(a.runtime, a.Body()); err != nil {
		return fmt.Errorf("failed to write response body: %w", err)
	}

	return nil
}

// Execute runs the executor and responds.
func (a *Application) Execute(ctx context.Context) error {
	if a.executor != nil {
		if err := a.executor.DoExecute(ctx, a); err != nil {
			return fmt.Errorf("failed to execute application: %w", err)
		}
	}

	return a.Respond()
}

// Redirect sends the client to url and closes the application. status must
// be a 3xx code; anything else becomes 303 See Other. When headers were
// already sent the redirect is done by script instead.
func (a *Application) Redirect(url string, status int) error {
	if status < 300 || status > 399 {
		status = http.StatusSeeOther
	}

	if a.runtime.HeadersSent() {
		target, err := json.Marshal(url)
		if err != nil {
			return fmt.Errorf("failed to encode redirect target: %w", err)
		}
		if _, err := fmt.Fprintf(a.runtime, "<script>document.location.href=%s;</script>\n", target); err != nil {
			return fmt.Errorf("failed to write redirect script: %w", err)
		}
		a.logger.Debug("redirected by script", slog.String("location", url))
	} else {
		a.SetStatus(status)
		a.SetHeader("Location", url, true)
		a.SetHeader("Content-Type", "text/html; charset=utf-8", true)
		a.SendHeaders()
		a.logger.Debug("redirected", slog.String("location", url), slog.Int("status", status))
	}

	a.Close(0)
	return nil
}

// Close ends the application with code.
func (a *Application) Close(code int) {
	a.closed = true
	a.runtime.Close(code)
}

// IsConnectionAlive reports whether the client is still connected.
func (a *Application) IsConnectionAlive() bool {
	return a.runtime.ConnectionAlive()
}
