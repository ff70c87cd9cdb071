package logging

import (
	"io"
	"log/slog"
	"os"
)

// ParseLevel maps "debug", "info", "warn" and "error" to a slog level.
// Anything else is info.
func ParseLevel(level string) slog.Level {
	switch level {
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

// NewHandler builds a text or JSON handler writing to w
func NewHandler(w io.Writer, level, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// SetupLogger creates a structured logger writing to stderr, so daemon logs
// stay apart from anything the process prints on stdout.
func SetupLogger(level, format string) *slog.Logger {
	return slog.New(NewHandler(os.Stderr, level, format))
}

// SetupLoggerWithFile creates a structured logger that writes to a file or discards output.
// If logFile is empty, output is discarded (useful for keeping REPL clean).
// If logFile is specified, logs are written as JSON to that file.
// Returns the logger and a cleanup function that must be called to close the file.
func SetupLoggerWithFile(level, logFile string) (*slog.Logger, func()) {
	cleanup := func() {}

	if logFile == "" {
		return slog.New(NewHandler(io.Discard, level, "text")), cleanup
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		// Fall back to discarding if file open fails
		return slog.New(NewHandler(io.Discard, level, "text")), cleanup
	}
	return slog.New(NewHandler(file, level, "json")), func() { file.Close() }
}
