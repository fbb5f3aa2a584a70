// pkg/core/events.go
package core

// Event names published on the dispatcher and recorded per session.
const (
	EventPlayerFired        = "player.fired"
	EventLaserFired         = "laser.fired"
	EventLaserHit           = "laser.hit"
	EventUFOHit             = "ufo.hit"
	EventUFOCrashed         = "ufo.crashed"
	EventStructureDamaged   = "structure.damaged"
	EventStructureDestroyed = "structure.destroyed"
	EventVictory            = "game.victory"
	EventDefeat             = "game.defeat"
)

// CombatEvent is one gameplay occurrence within a frame.
type CombatEvent struct {
	Name     string     `json:"name"`
	Frame    uint       `json:"frame"`
	SimTime  float64    `json:"simTime"`
	Position Position3D `json:"position"`
	UFOID    int        `json:"ufoId"`            // -1 when no saucer is involved
	Amount   float64    `json:"amount,omitempty"` // damage dealt or health remaining, depending on Name
	Score    int        `json:"score,omitempty"`
}

// HUDState is pushed to the HUD once per frame.
type HUDState struct {
	Frame           uint    `json:"frame"`
	Speed           float64 `json:"speed"`
	Altitude        float64 `json:"altitude"`
	Score           int     `json:"score"`
	StructureHealth float64 `json:"structureHealth"` // percent
	UFOsRemaining   int     `json:"ufosRemaining"`
	Paused          bool    `json:"paused"`
	Camera          string  `json:"camera"`
}
