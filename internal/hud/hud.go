// Package hud feeds the heads-up display. Stream sends it over a websocket
// to an external renderer; Nop discards it.
package hud

import "github.com/skywatch/saucerdefense/pkg/core"

// HUD receives the per-frame display state and the end of the session.
type HUD interface {
	Update(state core.HUDState)
	GameOver(result core.SessionResult)
}

// Nop is a HUD that shows nothing.
type Nop struct{}

func (Nop) Update(core.HUDState)        {}
func (Nop) GameOver(core.SessionResult) {}
