package gormstorage

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/skywatch/saucerdefense/pkg/core"
)

// Session is one played session.
type Session struct {
	ID               string `gorm:"primaryKey;size:36"`
	StartedAt        time.Time
	EndedAt          *time.Time
	WorldName        string `gorm:"size:64;index"`
	Seed             int64
	UFOCount         int
	StructureVariant string `gorm:"size:32"`
	FallbackTerrain  bool
	CenterLon        float64
	CenterLat        float64

	Outcome         string `gorm:"size:16;index"`
	Score           int
	Destroyed       int
	Spawned         int
	StructureHealth float64
	Frames          uint
	SimTime         float64
}

// CombatEvent is one recorded combat event. Values that only some events
// carry live in Details.
type CombatEvent struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	SessionID string    `gorm:"size:36;index"`
	Time      time.Time `gorm:"index"`
	Name      string    `gorm:"size:32;index"`
	Frame     uint
	SimTime   float64
	X         float64
	Y         float64
	Z         float64
	UFOID     int
	Details   datatypes.JSON
}

// FrameSample is a periodic snapshot of the session.
type FrameSample struct {
	ID              uint   `gorm:"primaryKey;autoIncrement"`
	SessionID       string `gorm:"size:36;index"`
	Frame           uint
	SimTime         float64
	DT              float64
	Player          datatypes.JSONType[core.Position3D]
	Speed           float64
	UFOsFlying      int
	Projectiles     int
	StructureHealth float64
	Score           int
}

// Models lists every table the recorder migrates.
var Models = []any{
	&Session{},
	&CombatEvent{},
	&FrameSample{},
}

type eventDetails struct {
	Amount float64 `json:"amount,omitempty"`
	Score  int     `json:"score,omitempty"`
}

func sessionFromCore(info *core.SessionInfo) Session {
	return Session{
		ID:               info.ID,
		StartedAt:        info.StartedAt,
		WorldName:        info.WorldName,
		Seed:             info.Seed,
		UFOCount:         info.UFOCount,
		StructureVariant: info.StructureVariant,
		FallbackTerrain:  info.FallbackTerrain,
		CenterLon:        info.CenterLon,
		CenterLat:        info.CenterLat,
		Outcome:          core.OutcomeNone.String(),
	}
}

func eventFromCore(sessionID string, e *core.CombatEvent, now time.Time) CombatEvent {
	details, _ := json.Marshal(eventDetails{Amount: e.Amount, Score: e.Score})
	return CombatEvent{
		SessionID: sessionID,
		Time:      now,
		Name:      e.Name,
		Frame:     e.Frame,
		SimTime:   e.SimTime,
		X:         e.Position.X,
		Y:         e.Position.Y,
		Z:         e.Position.Z,
		UFOID:     e.UFOID,
		Details:   datatypes.JSON(details),
	}
}

// ToCore converts a stored event back to its core form.
func (e CombatEvent) ToCore() core.CombatEvent {
	var d eventDetails
	_ = json.Unmarshal(e.Details, &d)
	return core.CombatEvent{
		Name:     e.Name,
		Frame:    e.Frame,
		SimTime:  e.SimTime,
		Position: core.Position3D{X: e.X, Y: e.Y, Z: e.Z},
		UFOID:    e.UFOID,
		Amount:   d.Amount,
		Score:    d.Score,
	}
}

func frameFromCore(sessionID string, f *core.FrameSample) FrameSample {
	return FrameSample{
		SessionID:       sessionID,
		Frame:           f.Frame,
		SimTime:         f.SimTime,
		DT:              f.DT,
		Player:          datatypes.NewJSONType(f.PlayerPosition),
		Speed:           f.Speed,
		UFOsFlying:      f.UFOsFlying,
		Projectiles:     f.Projectiles,
		StructureHealth: f.StructureHealth,
		Score:           f.Score,
	}
}
