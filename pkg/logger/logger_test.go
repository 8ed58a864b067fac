package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: LogLevelInfo, Output: &buf})
	t.Cleanup(func() { InitWithMode(LogModeTest) })

	log := WithComponent("dispatcher")
	log.Info().Str("job_id", "abc").Msg("Trainer invoked")
	Debug("hidden")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "dispatcher", entry["component"])
	assert.Equal(t, "abc", entry["job_id"])
	assert.Equal(t, "Trainer invoked", entry["message"])
	assert.Equal(t, "info", entry["level"])
}

func TestInitPretty(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: LogLevelDebug, Pretty: true, Output: &buf})
	t.Cleanup(func() { InitWithMode(LogModeTest) })

	l := Get()
	l.Debug().Str("file", "data.csv").Msg("Dataset profiled")

	out := buf.String()
	assert.Contains(t, out, "DBG")
	assert.Contains(t, out, "Dataset profiled")
	assert.Contains(t, out, "data.csv")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level LogLevel
		want  zerolog.Level
	}{
		{LogLevelDebug, zerolog.DebugLevel},
		{LogLevelInfo, zerolog.InfoLevel},
		{LogLevelWarn, zerolog.WarnLevel},
		{LogLevelError, zerolog.ErrorLevel},
		{LogLevelDisabled, zerolog.Disabled},
		{"verbose", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.level))
		})
	}
}

func TestInitWithModeTestDisablesOutput(t *testing.T) {
	InitWithMode(LogModeTest)
	assert.Equal(t, zerolog.Disabled, zerolog.GlobalLevel())

	InitWithMode(LogModeProd)
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
	InitWithMode(LogModeTest)
}
