// Package log configures slog for the application: text output during
// development, JSON in production, with a component attribute on every line.
package log

import (
	"log/slog"
	"os"
)

// Config holds logger configuration.
type Config struct {
	Level     slog.Level
	Component string
	JSON      bool
}

// New builds a slog.Logger per the configuration.
func New(config Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: config.Level}

	var handler slog.Handler
	if config.JSON {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	if config.Component != "" {
		logger = logger.With("component", config.Component)
	}
	return logger
}

// SetDefault installs the logger process-wide so package-level slog calls
// share the same handler.
func SetDefault(logger *slog.Logger) {
	slog.SetDefault(logger)
}
