// Package logging builds the application's slog logger and routes gorm's SQL
// logging through it.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gorm.io/gorm/logger"
)

// NewLogger returns a slog.Logger writing text or JSON records to w.
// A nil w writes to stdout.
func NewLogger(format, level string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// NewGormLogger returns a gorm logger writing through l. It is silent unless
// debug is set, in which case every statement is logged.
func NewGormLogger(l *slog.Logger, debug bool) logger.Interface {
	level := logger.Silent
	if debug {
		level = logger.Info
	}
	return logger.New(
		slog.NewLogLogger(l.With(slog.String("component", "gorm")).Handler(), slog.LevelDebug),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}
