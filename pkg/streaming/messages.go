// Package streaming holds the wire format of the live HUD stream.
package streaming

import (
	"encoding/json"

	"github.com/skywatch/saucerdefense/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeSessionStart = "session_start"
	TypeHUDState     = "hud_state"
	TypeCombatEvent  = "combat_event"
	TypeGameOver     = "game_over"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// SessionStartPayload announces the session the following messages belong to.
type SessionStartPayload struct {
	SessionID string  `json:"sessionId"`
	WorldName string  `json:"worldName"`
	UFOCount  int     `json:"ufoCount"`
	Structure string  `json:"structure"`
	CenterLon float64 `json:"centerLon"`
	CenterLat float64 `json:"centerLat"`
}

// GameOverPayload closes a session.
type GameOverPayload struct {
	Outcome         core.Outcome `json:"outcome"`
	Score           int          `json:"score"`
	Destroyed       int          `json:"destroyed"`
	Spawned         int          `json:"spawned"`
	StructureHealth float64      `json:"structureHealth"`
	SimTime         float64      `json:"simTime"`
}
