package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New constructs a text logger for a long-running component. The level
// comes from LOG_LEVEL (debug, info, warn, error; default info).
func New(component string) *slog.Logger {
	return NewWriter(os.Stderr, component)
}

// NewWriter is New with an explicit destination.
func NewWriter(w io.Writer, component string) *slog.Logger {
	level := parseLevel(os.Getenv("LOG_LEVEL"))
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h).With("component", component)
}

// Discard returns a logger that drops everything. Useful in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
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
