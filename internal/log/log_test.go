package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInfoWritesFields(t *testing.T) {
	var buf bytes.Buffer
	Init(&buf, false, LevelInfo)

	Info("snapshot loaded", "events", 3, "version", "abc", 42, "skipped")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "snapshot loaded", line["message"])
	assert.Equal(t, float64(3), line["events"])
	assert.Equal(t, "abc", line["version"])
	assert.NotContains(t, line, "42")
}

func TestErrorCarriesErr(t *testing.T) {
	var buf bytes.Buffer
	Init(&buf, false, LevelInfo)

	Error("fetch failed", errors.New("boom"), "id", "main")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "boom", line["error"])
	assert.Equal(t, "main", line["id"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init(&buf, false, LevelError)

	Debug("hidden")
	Info("hidden too")
	assert.Empty(t, buf.String())

	SetLevel(LevelDebug)
	Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelError, ParseLevel(" ERROR "))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
	assert.Equal(t, LevelInfo, ParseLevel(""))
}
