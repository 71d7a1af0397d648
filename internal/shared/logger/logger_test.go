package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"planets-api/internal/shared/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, parseLogLevel("info"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLogLevel("error"))
	assert.Equal(t, slog.LevelDebug, parseLogLevel("verbose"))
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, config.LoggingConfig{Level: "info", JSONFormat: true})

	log.Debug("hidden")
	log.Info("Planet created", "component", "planet_service", "planet_id", 7)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Planet created", entry["msg"])
	assert.Equal(t, "planet_service", entry["component"])
	assert.EqualValues(t, 7, entry["planet_id"])
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, config.LoggingConfig{Level: "warn"}).Warn("Rate limit exceeded", "client_ip", "10.0.0.1")

	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "client_ip=10.0.0.1")
}
