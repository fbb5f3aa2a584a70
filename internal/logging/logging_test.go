package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogFilePath(t *testing.T) {
	sessionStart := time.Date(2026, 2, 12, 21, 38, 36, 0, time.UTC)

	tests := []struct {
		name    string
		logsDir string
		app     string
		want    string
	}{
		{
			name:    "basic path",
			logsDir: "logs",
			app:     "saucerdefense",
			want:    filepath.Join("logs", "saucerdefense.20260212_213836.log"),
		},
		{
			name:    "relative path with dot",
			logsDir: "./logs",
			app:     "saucerdefense",
			want:    filepath.Join(".", "logs", "saucerdefense.20260212_213836.log"),
		},
		{
			name:    "absolute path",
			logsDir: filepath.Join("/var", "log", "saucer"),
			app:     "saucerdefense",
			want:    filepath.Join("/var", "log", "saucer", "saucerdefense.20260212_213836.log"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LogFilePath(tt.logsDir, tt.app, sessionStart))
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("WARN"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("nonsense"))
}

func TestSetup_WritesSessionFile(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	m, err := Setup(Config{Level: "debug", Dir: dir, Name: "saucerdefense"}, start)
	require.NoError(t, err)

	logger := m.Logger()
	logger.Debug().Int("frame", 7).Msg("stepping")
	require.NoError(t, m.Close())

	assert.Equal(t, LogFilePath(dir, "saucerdefense", start), m.FilePath())
	data, err := os.ReadFile(m.FilePath())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"stepping"`)
	assert.Contains(t, string(data), `"frame":7`)
	assert.Contains(t, string(data), `"app":"saucerdefense"`)
}

func TestSetup_LevelFilters(t *testing.T) {
	var console bytes.Buffer
	m, err := Setup(Config{Level: "warn", Console: &console, Name: "saucerdefense"}, time.Now())
	require.NoError(t, err)

	logger := m.Logger()
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")
	assert.NotContains(t, console.String(), "hidden")
	assert.Contains(t, console.String(), "shown")
}

func TestSetup_GraylogUnreachableIsNotFatal(t *testing.T) {
	var console bytes.Buffer
	m, err := Setup(Config{
		Level:          "info",
		Console:        &console,
		Name:           "saucerdefense",
		GraylogEnabled: true,
		GraylogAddress: "not a host:port:at all",
	}, time.Now())
	require.NoError(t, err)
	defer m.Close()

	assert.Contains(t, console.String(), "Graylog unavailable")
}

func TestDispatcherLogger(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf).Level(zerolog.DebugLevel))

	dl.Debug("test message", "key1", "value1", "key2", 42)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "test message", entry["message"])
	assert.Equal(t, "value1", entry["key1"])
	assert.Equal(t, float64(42), entry["key2"])
	assert.Equal(t, "dispatcher", entry["component"])
}

func TestDispatcherLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf))

	dl.Info("i")
	dl.Warn("w")
	dl.Error("e", "error", "boom")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], `"level":"info"`)
	assert.Contains(t, lines[1], `"level":"warn"`)
	assert.Contains(t, lines[2], `"level":"error"`)
}

func TestToFields_OddAndNonStringKeys(t *testing.T) {
	fields := toFields([]any{"a", 1, 2, "b", "dangling"})
	assert.Equal(t, map[string]any{"a": 1}, fields)
}
