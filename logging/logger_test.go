package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lastLine(buf *bytes.Buffer) map[string]any {
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var entry map[string]any
	if err := json.Unmarshal(lines[len(lines)-1], &entry); err != nil {
		return nil
	}
	return entry
}

func TestEngineLogger_ContextualAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LogLevelDebug, Format: "json", Output: &buf}).
		WithComponent("engine").
		WithRequest("req-1").
		WithContext("model", "gpt-4o-mini")

	logger.Info("request.started", "tools", 2)

	entry := lastLine(&buf)
	require.NotNil(t, entry)
	assert.Equal(t, "request.started", entry["msg"])
	assert.Equal(t, "engine", entry["component"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "gpt-4o-mini", entry["model"])
	assert.Equal(t, float64(2), entry["tools"])
}

func TestEngineLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LogLevelWarn, Format: "json", Output: &buf})

	logger.Debug("hidden")
	logger.Info("hidden")
	assert.Zero(t, buf.Len())

	logger.Warn("shown")
	assert.NotZero(t, buf.Len())
}

func TestEngineLogger_WithDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "json", Output: &buf})
	child := parent.WithContext("key", "value")

	parent.Info("plain")
	entry := lastLine(&buf)
	require.NotNil(t, entry)
	_, has := entry["key"]
	assert.False(t, has)

	buf.Reset()
	child.Info("enriched")
	entry = lastLine(&buf)
	require.NotNil(t, entry)
	assert.Equal(t, "value", entry["key"])
}

func TestLogLevel_String(t *testing.T) {
	assert.Equal(t, "DEBUG", LogLevelDebug.String())
	assert.Equal(t, "INFO", LogLevelInfo.String())
	assert.Equal(t, "WARN", LogLevelWarn.String())
	assert.Equal(t, "ERROR", LogLevelError.String())
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}
