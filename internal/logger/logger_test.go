package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imgmeta/internal/config"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(&config.LogConfig{Level: "info", Format: "json"}, &buf)

	l.Debug().Msg("hidden")
	l.Info().Str("image_id", "abc").Msg("created")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "created", line["message"])
	assert.Equal(t, "abc", line["image_id"])
	assert.Equal(t, "info", line["level"])
	assert.Contains(t, line, "time")
}

func TestNew_Levels(t *testing.T) {
	var buf bytes.Buffer
	l := New(&config.LogConfig{Level: "WARN"}, &buf)
	l.Info().Msg("quiet")
	assert.Zero(t, buf.Len())
	l.Warn().Msg("loud")
	assert.Contains(t, buf.String(), "loud")

	buf.Reset()
	l = New(&config.LogConfig{Level: "bogus"}, &buf)
	l.Debug().Msg("dropped")
	l.Info().Msg("kept")
	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	l := New(&config.LogConfig{Level: "info", Format: "console"}, &buf)
	l.Info().Msg("hello")

	assert.Contains(t, buf.String(), "hello")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}
