package gormstorage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skywatch/saucerdefense/internal/database"
	"github.com/skywatch/saucerdefense/pkg/core"
)

func newTestBackend(t *testing.T, flush time.Duration) *Backend {
	t.Helper()
	db, err := database.OpenSqlite(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)

	b := New(Dependencies{DB: db, Log: zerolog.Nop(), FlushInterval: flush})
	require.NoError(t, b.Init())
	t.Cleanup(func() { b.Close() })
	return b
}

func startSession(t *testing.T, b *Backend) *core.SessionInfo {
	t.Helper()
	info := &core.SessionInfo{
		StartedAt:        time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
		WorldName:        "harbor",
		Seed:             3,
		UFOCount:         4,
		StructureVariant: "spire",
	}
	require.NoError(t, b.StartSession(info))
	return info
}

func TestInit_NoDB(t *testing.T) {
	b := New(Dependencies{Log: zerolog.Nop()})
	assert.Error(t, b.Init())
}

func TestStartSession_InsertsRow(t *testing.T) {
	b := newTestBackend(t, 0)
	info := startSession(t, b)

	require.Len(t, info.ID, 36)

	var row Session
	require.NoError(t, b.DB().First(&row, "id = ?", info.ID).Error)
	assert.Equal(t, "harbor", row.WorldName)
	assert.Equal(t, "spire", row.StructureVariant)
	assert.Equal(t, "none", row.Outcome)
	assert.Nil(t, row.EndedAt)
}

func TestRecord_QueuesUntilFlush(t *testing.T) {
	b := newTestBackend(t, 0)
	info := startSession(t, b)

	require.NoError(t, b.RecordEvent(&core.CombatEvent{
		Name:     core.EventLaserHit,
		Frame:    40,
		Position: core.Position3D{X: 1, Y: 2, Z: 3},
		UFOID:    2,
		Amount:   0.5,
	}))
	require.NoError(t, b.RecordFrame(&core.FrameSample{
		Frame:          60,
		PlayerPosition: core.Position3D{X: 10, Y: 300, Z: -900},
		UFOsFlying:     4,
	}))
	assert.Equal(t, 2, b.Pending())

	var count int64
	b.DB().Model(&CombatEvent{}).Count(&count)
	assert.Zero(t, count)

	require.NoError(t, b.Flush())
	assert.Zero(t, b.Pending())

	var events []CombatEvent
	require.NoError(t, b.DB().Where("session_id = ?", info.ID).Find(&events).Error)
	require.Len(t, events, 1)
	got := events[0].ToCore()
	assert.Equal(t, core.EventLaserHit, got.Name)
	assert.Equal(t, core.Position3D{X: 1, Y: 2, Z: 3}, got.Position)
	assert.Equal(t, 0.5, got.Amount)
	assert.Equal(t, 2, got.UFOID)

	var frames []FrameSample
	require.NoError(t, b.DB().Where("session_id = ?", info.ID).Find(&frames).Error)
	require.Len(t, frames, 1)
	assert.Equal(t, core.Position3D{X: 10, Y: 300, Z: -900}, frames[0].Player.Data())
	assert.Equal(t, 4, frames[0].UFOsFlying)
}

func TestEndSession_StoresResult(t *testing.T) {
	b := newTestBackend(t, 0)
	info := startSession(t, b)
	require.NoError(t, b.RecordEvent(&core.CombatEvent{Name: core.EventDefeat, UFOID: -1, Score: 300}))

	ended := time.Date(2026, 5, 1, 12, 5, 0, 0, time.UTC)
	require.NoError(t, b.EndSession(&core.SessionResult{
		Outcome:   core.OutcomeDefeat,
		Score:     300,
		Destroyed: 3,
		Spawned:   4,
		Frames:    18000,
		SimTime:   300,
		EndedAt:   ended,
	}))

	var row Session
	require.NoError(t, b.DB().First(&row, "id = ?", info.ID).Error)
	assert.Equal(t, "defeat", row.Outcome)
	assert.Equal(t, 300, row.Score)
	assert.Equal(t, uint(18000), row.Frames)
	require.NotNil(t, row.EndedAt)
	assert.True(t, ended.Equal(*row.EndedAt))

	var count int64
	b.DB().Model(&CombatEvent{}).Where("session_id = ?", info.ID).Count(&count)
	assert.Equal(t, int64(1), count, "end of session writes the queue")

	assert.ErrorIs(t, b.RecordEvent(&core.CombatEvent{}), ErrNoSession)
	assert.ErrorIs(t, b.EndSession(&core.SessionResult{}), ErrNoSession)
}

func TestRecordWithoutSession(t *testing.T) {
	b := newTestBackend(t, 0)
	assert.ErrorIs(t, b.RecordEvent(&core.CombatEvent{}), ErrNoSession)
	assert.ErrorIs(t, b.RecordFrame(&core.FrameSample{}), ErrNoSession)
}

func TestBackgroundWriter(t *testing.T) {
	b := newTestBackend(t, 10*time.Millisecond)
	startSession(t, b)

	for i := 0; i < 5; i++ {
		require.NoError(t, b.RecordEvent(&core.CombatEvent{Name: core.EventUFOHit, Frame: uint(i)}))
	}

	assert.Eventually(t, func() bool { return b.Pending() == 0 }, time.Second, 5*time.Millisecond)

	var count int64
	b.DB().Model(&CombatEvent{}).Count(&count)
	assert.Equal(t, int64(5), count)
}

func TestClose_FlushesQueue(t *testing.T) {
	db, err := database.OpenSqlite(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	b := New(Dependencies{DB: db, Log: zerolog.Nop(), FlushInterval: time.Hour})
	require.NoError(t, b.Init())
	startSession(t, b)
	require.NoError(t, b.RecordFrame(&core.FrameSample{Frame: 1}))

	require.NoError(t, b.Close())

	var count int64
	db.Model(&FrameSample{}).Count(&count)
	assert.Equal(t, int64(1), count)
}
