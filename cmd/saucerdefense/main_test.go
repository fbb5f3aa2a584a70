package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skywatch/saucerdefense/internal/config"
	"github.com/skywatch/saucerdefense/internal/hud"
	"github.com/skywatch/saucerdefense/internal/storage"
)

func writeConfig(t *testing.T, cfg map[string]any) string {
	t.Helper()
	dir := t.TempDir()
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), data, 0644))
	return dir
}

func TestRun_DefeatIsRecordedAndExported(t *testing.T) {
	t.Cleanup(viper.Reset)
	work := t.TempDir()
	out := filepath.Join(work, "recordings")

	dir := writeConfig(t, map[string]any{
		"logsDir": filepath.Join(work, "logs"),
		"sim":     map[string]any{"telemetryEvery": 1},
		"terrain": map[string]any{
			"source":           filepath.Join(work, "missing.json"),
			"resolution":       8,
			"fallbackGridSize": 9,
		},
		"ufo": map[string]any{
			"count": 1,
			"laser": map[string]any{
				"intervalMin": 0, "intervalMax": 0,
				"cooldownMin": 0, "cooldownMax": 0,
				"aimSpread": 0, "damage": 100,
			},
		},
		"storage": map[string]any{
			"type":   "memory",
			"memory": map[string]any{"outputDir": out, "compressOutput": false},
		},
		"influx": map[string]any{"backupDir": filepath.Join(work, "telemetry")},
	})

	err := run(context.Background(), options{configDir: dir, frames: 100, dt: 1.0 / 60})
	require.NoError(t, err)

	exports, err := filepath.Glob(filepath.Join(out, "*.json"))
	require.NoError(t, err)
	require.Len(t, exports, 1)

	var export struct {
		Outcome  string `json:"outcome"`
		EndFrame uint   `json:"endFrame"`
	}
	data, err := os.ReadFile(exports[0])
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &export))
	assert.Equal(t, "defeat", export.Outcome)
	assert.Equal(t, uint(1), export.EndFrame)

	backups, err := filepath.Glob(filepath.Join(work, "telemetry", "*.lp.gz"))
	require.NoError(t, err)
	assert.Len(t, backups, 1)
}

func TestConnectHUD_DisabledIsNop(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("hud.enabled", false)
	assert.Equal(t, hud.Nop{}, connectHUD(zerolog.Nop()))
}

func TestConnectHUD_UnreachableIsNop(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("hud.enabled", true)
	viper.Set("hud.url", "ws://127.0.0.1:1/hud")
	assert.Equal(t, hud.Nop{}, connectHUD(zerolog.Nop()))
}

func TestUpload_SkipsWithoutExport(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("api.upload", true)
	viper.Set("api.serverUrl", "http://127.0.0.1:1")

	// Discard is not Uploadable; nothing is dialled
	upload(context.Background(), storage.Discard{}, zerolog.Nop())
}
