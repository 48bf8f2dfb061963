package app

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger returns the process logger. Every record carries the component
// name and environment so server and worker logs can share a sink.
func NewLogger(cfg *Config, component string) *slog.Logger {
	return newLogger(os.Stdout, cfg, component)
}

func newLogger(w io.Writer, cfg *Config, component string) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	env := ""
	var handler slog.Handler
	if cfg != nil {
		opts.Level = parseLevel(cfg.LogLevel)
		env = cfg.AppEnv
	}
	if cfg != nil && cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler).With(slog.String("component", component), slog.String("env", env))
}

func parseLevel(v string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
