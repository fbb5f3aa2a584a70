package memory

import (
	"compress/gzip"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skywatch/saucerdefense/internal/config"
	"github.com/skywatch/saucerdefense/pkg/core"
)

func newSession() *core.SessionInfo {
	return &core.SessionInfo{
		ID:               "0b6f3c1e-5d2a-4e7f-9a8b-123456789abc",
		StartedAt:        time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC),
		WorldName:        "San Francisco Bay",
		Seed:             7,
		UFOCount:         10,
		StructureVariant: "needle",
		CenterLon:        -122.4,
		CenterLat:        37.8,
	}
}

func result() *core.SessionResult {
	return &core.SessionResult{
		Outcome:         core.OutcomeVictory,
		Score:           1000,
		Destroyed:       10,
		Spawned:         10,
		StructureHealth: 87.5,
		Frames:          3600,
		SimTime:         60,
		EndedAt:         time.Date(2026, 1, 15, 10, 31, 0, 0, time.UTC),
	}
}

func readExport(t *testing.T, path string) Export {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		require.NoError(t, err)
		defer gz.Close()
		r = gz
	}

	var export Export
	require.NoError(t, json.NewDecoder(r).Decode(&export))
	return export
}

func TestRecordBeforeStart(t *testing.T) {
	b := New(config.MemoryConfig{}, zerolog.Nop())

	assert.ErrorIs(t, b.RecordEvent(&core.CombatEvent{Name: core.EventUFOHit}), ErrNoSession)
	assert.ErrorIs(t, b.RecordFrame(&core.FrameSample{}), ErrNoSession)
	assert.ErrorIs(t, b.EndSession(result()), ErrNoSession)
}

func TestStartSession_AssignsID(t *testing.T) {
	b := New(config.MemoryConfig{}, zerolog.Nop())
	info := &core.SessionInfo{WorldName: "x"}

	require.NoError(t, b.StartSession(info))
	assert.Len(t, info.ID, 36)
}

func TestStartSession_Resets(t *testing.T) {
	b := New(config.MemoryConfig{}, zerolog.Nop())
	require.NoError(t, b.StartSession(newSession()))
	require.NoError(t, b.RecordEvent(&core.CombatEvent{Name: core.EventUFOHit}))
	require.NoError(t, b.RecordFrame(&core.FrameSample{Frame: 1}))

	require.NoError(t, b.StartSession(newSession()))
	assert.Empty(t, b.Events())
	assert.Empty(t, b.Frames())
}

func TestExport_Plain(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir}, zerolog.Nop())

	require.NoError(t, b.StartSession(newSession()))
	require.NoError(t, b.RecordEvent(&core.CombatEvent{Name: core.EventUFOHit, Frame: 12, UFOID: 3, Score: 100}))
	require.NoError(t, b.RecordEvent(&core.CombatEvent{Name: core.EventVictory, Frame: 3600, UFOID: -1, Score: 1000}))
	require.NoError(t, b.RecordFrame(&core.FrameSample{Frame: 60, Speed: 80, UFOsFlying: 9}))
	require.NoError(t, b.EndSession(result()))

	path := b.GetExportedFilePath()
	assert.Equal(t, filepath.Join(dir, "San_Francisco_Bay_20260115_103000_0b6f3c1e.json"), path)

	export := readExport(t, path)
	assert.Equal(t, "0b6f3c1e-5d2a-4e7f-9a8b-123456789abc", export.SessionID)
	assert.Equal(t, core.OutcomeVictory, export.Outcome)
	assert.Equal(t, 1000, export.Score)
	assert.Equal(t, uint(3600), export.EndFrame)
	assert.Equal(t, [2]float64{-122.4, 37.8}, export.Center)
	require.Len(t, export.Events, 2)
	assert.Equal(t, 3, export.Events[0].UFOID)
	require.Len(t, export.Samples, 1)
	assert.Equal(t, 9, export.Samples[0].UFOsFlying)
}

func TestExport_Gzip(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir, CompressOutput: true}, zerolog.Nop())

	require.NoError(t, b.StartSession(newSession()))
	require.NoError(t, b.EndSession(result()))

	path := b.GetExportedFilePath()
	assert.True(t, strings.HasSuffix(path, ".json.gz"))

	export := readExport(t, path)
	assert.Equal(t, "San Francisco Bay", export.WorldName)
	assert.NotNil(t, export.Events, "empty sessions still export an events array")
}

func TestExport_OutcomeEncodedByName(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir}, zerolog.Nop())
	require.NoError(t, b.StartSession(newSession()))
	r := result()
	r.Outcome = core.OutcomeDefeat
	require.NoError(t, b.EndSession(r))

	data, err := os.ReadFile(b.GetExportedFilePath())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"outcome":"defeat"`)
}

func TestGetExportMetadata(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()}, zerolog.Nop())
	require.NoError(t, b.StartSession(newSession()))
	require.NoError(t, b.EndSession(result()))

	meta := b.GetExportMetadata()
	assert.Equal(t, "0b6f3c1e-5d2a-4e7f-9a8b-123456789abc", meta.SessionID)
	assert.Equal(t, "San Francisco Bay", meta.WorldName)
	assert.Equal(t, core.OutcomeVictory, meta.Outcome)
	assert.Equal(t, 1000, meta.Score)
	assert.Equal(t, 60.0, meta.SimDuration)
}
