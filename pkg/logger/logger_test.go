package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_WritesFieldsAndCaller(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "debug", Format: "json", Output: &buf})

	l.Error("rating update failed", errors.New("boom"), Fields{"vendor_id": "v-1"})

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "rating update failed", line["message"])
	assert.Equal(t, "boom", line["error"])
	assert.Equal(t, "v-1", line["vendor_id"])
	assert.Contains(t, line["caller"], "logger_test.go")
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "warn", Format: "json", Output: &buf})

	l.Debug("hidden")
	l.Info("hidden")
	assert.Zero(t, buf.Len())

	l.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestLogger_WithContext(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "info", Format: "json", Output: &buf}).
		WithContext(Fields{"request_id": "abc"})

	l.Info("hello")
	assert.Contains(t, buf.String(), `"request_id":"abc"`)
}

func TestParseLogLevel_DefaultsToInfo(t *testing.T) {
	assert.Equal(t, parseLogLevel("INFO"), parseLogLevel("nonsense"))
	assert.NotEqual(t, parseLogLevel("debug"), parseLogLevel("info"))
}
