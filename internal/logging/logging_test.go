package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "input %q", in)
	}
}

func TestInitJSON(t *testing.T) {
	t.Cleanup(func() { Init(Config{}) })

	var buf bytes.Buffer
	l := Init(Config{Level: slog.LevelDebug, JSON: true, Output: &buf})
	l.Debug("tick", "job", "reminder")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "tick", rec["msg"])
	assert.Equal(t, "reminder", rec["job"])
	assert.Same(t, l, Default())
}

func TestInitLevelFilters(t *testing.T) {
	t.Cleanup(func() { Init(Config{}) })

	var buf bytes.Buffer
	l := Init(Config{Level: slog.LevelWarn, Output: &buf})
	l.Info("hidden")
	assert.Empty(t, buf.String())

	l.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestOr(t *testing.T) {
	d := Discard()
	assert.Same(t, d, Or(d))
	assert.Same(t, Default(), Or(nil))
}
