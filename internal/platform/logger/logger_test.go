package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestJSONLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn", "json")

	log.Info("dropped")
	log.Warn("kept", "guild_id", "g1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "kept", line["msg"])
	assert.Equal(t, "g1", line["guild_id"])
	assert.Equal(t, "gatekeeper", line["service"])
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter(&buf, "info", "text").Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}
