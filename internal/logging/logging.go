// Package logging configures the process-wide slog handler. Diagnostics go
// to stderr so command output (tail lines, tables, JSON) stays clean on
// stdout.
package logging

import (
	"io"
	"log/slog"
	"os"
)

type Config struct {
	Level  string
	Format string
	Output io.Writer
}

func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "text",
		Output: os.Stderr,
	}
}

// Init installs the default slog handler described by cfg. Unknown levels
// fall back to info.
func Init(cfg Config) {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	slog.SetDefault(slog.New(handler))
}

func parseLevel(level string) slog.Level {
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

// ForComponent returns a child logger tagged with the component name.
func ForComponent(component string) *slog.Logger {
	return slog.Default().With("component", component)
}
