package logger

import (
	"log/slog"
	"os"
)

// New returns the JSON slog logger used across handlers and services.
// Level defaults to info; LOG_LEVEL=debug opens it up.
func New() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
