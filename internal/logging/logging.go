// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
)

// ParseLevel maps a level name to a slog level. Unknown names yield info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds a logger writing to w. Format "json" selects the JSON handler,
// anything else the colored text handler.
func New(w io.Writer, level, format string) *slog.Logger {
	logLevel := ParseLevel(level)

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = tint.NewHandler(w, &tint.Options{Level: logLevel, NoColor: w != os.Stderr && w != os.Stdout})
	}

	return slog.New(handler)
}

// Setup configures the global slog logger on stderr and returns it.
func Setup(level, format string) *slog.Logger {
	logger := New(os.Stderr, level, format)
	slog.SetDefault(logger)
	return logger
}
