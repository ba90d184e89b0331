package logger

import (
	"log/slog"
	"os"
)

// New creates a JSON-formatted logger for the named component.
// The component name is added to every entry; extractors inject
// context-scoped attributes per log call.
func New(component string, extractors ...ContextExtractor) *slog.Logger {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: levelFromEnv(),
	})
	return slog.New(NewLogHandlerDecorator(h, extractors...)).
		With(slog.String("component", component))
}

// levelFromEnv reads LOG_LEVEL (debug, info, warn, error). Defaults to info.
func levelFromEnv() slog.Level {
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
