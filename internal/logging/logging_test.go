package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/restspec/internal/config"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestFromConfigJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := FromConfig(config.LogConfig{Level: "debug", Format: "json"}, &buf)
	logger.Debug("exchange", "status", 201)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "exchange", line["msg"])
	assert.EqualValues(t, 201, line["status"])
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: slog.LevelWarn, Output: &buf})
	logger.Info("hidden")
	assert.Empty(t, buf.String())
}
