// Package logger provides structured logging on top of log/slog with
// context-based attribute injection and optional Sentry error reporting.
//
// Loggers are created per component so every entry carries a "component"
// attribute for filtering. Context extractors pull request-scoped values
// (request id, user id) into each record at log time.
package logger
