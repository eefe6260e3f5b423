package logging

import (
	"log/slog"
	"os"
	"strings"
)

// New returns a production-friendly JSON logger writing to stdout.
// LOG_FORMAT=console switches to a human-readable handler and LOG_LEVEL
// (debug|info|warn|error) overrides the default info level.
func New() *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(os.Getenv("LOG_LEVEL"))}
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if format := os.Getenv("LOG_FORMAT"); format == "console" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(raw) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
