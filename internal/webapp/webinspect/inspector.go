// Package webinspect provides a webapp.Runtime that records what an
// Application emits instead of sending it.
package webinspect

import (
	"bytes"
	"context"

	"github.com/phrazzld/testkit/internal/webapp"
)

// Header is one recorded call to Inspector.Header.
type Header struct {
	Line    string
	Replace bool
	Code    int
}

// Inspector records headers, output and the close code. Each Inspector has
// its own flags, so tests do not affect each other.
type Inspector struct {
	// HeadersSentFlag is reported by HeadersSent.
	HeadersSentFlag bool
	// ConnectionAliveFlag is reported by ConnectionAlive.
	ConnectionAliveFlag bool

	Headers []Header
	Output  bytes.Buffer
	// Closed holds the close code, or nil while open.
	Closed *int
}

// New returns an Inspector for a live connection with no headers sent.
func New() *Inspector {
	return &Inspector{ConnectionAliveFlag: true}
}

// NewApplication returns an Application running on a new Inspector with the
// no-op executor.
func NewApplication(opts ...webapp.Option) (*webapp.Application, *Inspector) {
	in := New()
	return webapp.New(in, in, opts...), in
}

func (in *Inspector) Write(p []byte) (int, error) { return in.Output.Write(p) }

func (in *Inspector) Header(line string, replace bool, code int) {
	in.Headers = append(in.Headers, Header{Line: line, Replace: replace, Code: code})
}

func (in *Inspector) HeadersSent() bool { return in.HeadersSentFlag }

func (in *Inspector) ConnectionAlive() bool { return in.ConnectionAliveFlag }

// Close records code instead of ending anything.
func (in *Inspector) Close(code int) {
	in.Closed = &code
}

// DoExecute does nothing.
func (in *Inspector) DoExecute(context.Context, *webapp.Application) error { return nil }
