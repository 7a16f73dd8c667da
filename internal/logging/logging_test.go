package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger("json", "debug", &buf)
	l.Debug("hello", slog.String("k", "v"))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, "v", rec["k"])
}

func TestNewLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger("text", "warn", &buf)
	l.Info("skipped")
	assert.Empty(t, buf.String())
	l.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNewGormLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger("text", "debug", &buf)

	NewGormLogger(l, false).Info(context.Background(), "silent %s", "msg")
	assert.Empty(t, buf.String())

	NewGormLogger(l, true).Info(context.Background(), "loud %s", "msg")
	assert.Contains(t, buf.String(), "loud msg")
	assert.Contains(t, buf.String(), "component=gorm")

	var _ logger.Interface = NewGormLogger(l, true)
}
