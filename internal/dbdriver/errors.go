package dbdriver

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/phrazzld/testkit/internal/ciutil"
)

// ExecutionFailure reports a failed statement.
type ExecutionFailure struct {
	Query string
	Err   error
}

// Error returns the driver message, which callers match against known phrases.
func (e *ExecutionFailure) Error() string {
	return fmt.Sprintf("execution failed: %v", e.Err)
}

// Unwrap returns the wrapped driver error to support errors.Is/errors.As.
func (e *ExecutionFailure) Unwrap() error {
	return e.Err
}

func executionFailure(query string, err error) error {
	if err == nil {
		return nil
	}
	return &ExecutionFailure{Query: query, Err: err}
}

// maskedError carries a credential-free message for an error whose own text
// may echo the DSN.
type maskedError struct {
	msg string
	err error
}

func (e *maskedError) Error() string { return e.msg }

func (e *maskedError) Unwrap() error { return e.err }

var nonSpace = regexp.MustCompile(`\S+`)

// maskCredentials masks each DSN-like word of err's message and any literal
// occurrence of password.
func maskCredentials(err error, password string) error {
	msg := err.Error()
	if password != "" {
		msg = strings.ReplaceAll(msg, password, "****")
	}
	msg = nonSpace.ReplaceAllStringFunc(msg, ciutil.MaskSensitiveValue)
	if msg == err.Error() {
		return err
	}
	return &maskedError{msg: msg, err: err}
}
