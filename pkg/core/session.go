// pkg/core/session.go
package core

import "time"

// Position3D is a world-space position (x east, y up, z north).
type Position3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Outcome is the terminal result of a session.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeVictory
	OutcomeDefeat
)

func (o Outcome) String() string {
	switch o {
	case OutcomeVictory:
		return "victory"
	case OutcomeDefeat:
		return "defeat"
	}
	return "none"
}

// MarshalText encodes the outcome by name.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText decodes an outcome name. Unknown names decode to OutcomeNone.
func (o *Outcome) UnmarshalText(text []byte) error {
	switch string(text) {
	case "victory":
		*o = OutcomeVictory
	case "defeat":
		*o = OutcomeDefeat
	default:
		*o = OutcomeNone
	}
	return nil
}

// SessionInfo describes a started game session.
type SessionInfo struct {
	ID               string
	StartedAt        time.Time
	WorldName        string
	Seed             int64
	UFOCount         int
	StructureVariant string
	FallbackTerrain  bool
	CenterLon        float64
	CenterLat        float64
}

// SessionResult is recorded when a session ends.
type SessionResult struct {
	Outcome         Outcome
	Score           int
	Destroyed       int
	Spawned         int
	StructureHealth float64
	Frames          uint
	SimTime         float64
	EndedAt         time.Time
}

// UploadMetadata accompanies an exported session sent to the scoreboard.
type UploadMetadata struct {
	SessionID   string
	WorldName   string
	Outcome     Outcome
	Score       int
	SimDuration float64
	Tag         string
}

// FrameSample is a periodic snapshot of the simulation used for telemetry
// and session recordings.
type FrameSample struct {
	Frame           uint       `json:"frame"`
	SimTime         float64    `json:"simTime"`
	DT              float64    `json:"dt"`
	PlayerPosition  Position3D `json:"playerPosition"`
	Speed           float64    `json:"speed"`
	UFOsFlying      int        `json:"ufosFlying"`
	Projectiles     int        `json:"projectiles"`
	StructureHealth float64    `json:"structureHealth"`
	Score           int        `json:"score"`
}
