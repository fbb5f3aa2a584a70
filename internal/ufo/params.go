package ufo

import (
	"fmt"
	"strings"
)

// GroundMode selects what a falling saucer crashes into.
type GroundMode int

const (
	// GroundFlat crashes at y <= 0.
	GroundFlat GroundMode = iota
	// GroundTerrain crashes at the terrain height below the saucer.
	GroundTerrain
)

func (g GroundMode) String() string {
	if g == GroundTerrain {
		return "terrain"
	}
	return "flat"
}

// ParseGroundMode accepts "flat" or "terrain".
func ParseGroundMode(s string) (GroundMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "flat":
		return GroundFlat, nil
	case "terrain":
		return GroundTerrain, nil
	}
	return GroundFlat, fmt.Errorf("unknown ground mode %q", s)
}

// Params are the orbit, laser and crash tunables shared by a fleet. Values are
// trusted as given.
type Params struct {
	Radius         float64 // orbit radius around the centre
	Height         float64 // orbit height above the centre
	AngularSpeed   float64 // radians per second
	HoverAmplitude float64
	HoverFrequency float64 // radians per second

	Gravity      float64 // vertical acceleration while falling
	Jitter       float64 // max rotation nudge per frame while falling, radians
	CrashFlatten float64 // y scale multiplier applied on impact
	GroundMode   GroundMode

	LaserDuration float64 // seconds the beam stays visible
	CooldownMin   float64
	CooldownMax   float64
	IntervalMin   float64
	IntervalMax   float64
	LaserDamage   float64
	AimSpread     float64 // max offset of the beam end from the target centre, per axis
}

// DefaultParams returns the stock tuning.
func DefaultParams() Params {
	return Params{
		Radius:         320,
		Height:         220,
		AngularSpeed:   0.25,
		HoverAmplitude: 4,
		HoverFrequency: 2,

		Gravity:      -19.6,
		Jitter:       0.05,
		CrashFlatten: 0.5,
		GroundMode:   GroundFlat,

		LaserDuration: 0.5,
		CooldownMin:   0.5,
		CooldownMax:   2,
		IntervalMin:   2,
		IntervalMax:   6,
		LaserDamage:   0.5,
		AimSpread:     6,
	}
}
