// Package logging installs the process-wide slog logger for the chat server.
package logging

import (
	"log/slog"
	"os"
)

// New configures slog and sets it as the default. LOG_FORMAT picks the
// handler: "json" for machine-readable output, anything else gets the text
// handler with source locations.
func New() {
	logFormat := os.Getenv("LOG_FORMAT")
	if logFormat == "" {
		logFormat = "text"
	}

	var handler slog.Handler
	switch logFormat {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level:     slog.LevelDebug,
			AddSource: true,
		})
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
}
