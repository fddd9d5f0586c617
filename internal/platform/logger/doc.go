// Package logger provides structured logging functionality for the test tooling.
//
// It utilizes Go's standard library log/slog package to implement structured JSON logging
// with configurable log levels, context propagation of loggers, a CI-aware handler, and
// helpers for capturing log output inside tests.
package logger
