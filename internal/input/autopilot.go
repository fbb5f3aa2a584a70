package input

import (
	"math"

	"github.com/skywatch/saucerdefense/internal/flight"
	"github.com/skywatch/saucerdefense/internal/vec"
)

// Autopilot is a scripted pilot for headless runs: it turns toward a target,
// holds the target's altitude and fires when the target is roughly ahead.
type Autopilot struct {
	FireCone     float64 // max angle off the nose to shoot, radians
	FireInterval float64 // seconds between shots
	Gain         float64 // stick deflection per radian of error

	sinceShot float64
}

// NewAutopilot returns an autopilot with usable defaults.
func NewAutopilot() *Autopilot {
	return &Autopilot{
		FireCone:     0.08,
		FireInterval: 0.25,
		Gain:         2.5,
	}
}

// Fly writes one frame of input into c for a plane at pos facing forward.
func (a *Autopilot) Fly(c *Controller, pos, forward, target vec.Vec3, dt float64) {
	a.sinceShot += dt

	to := target.Sub(pos)
	dist := to.Length()
	if dist == 0 {
		c.SetControls(flight.Controls{})
		return
	}
	dir := to.Scale(1 / dist)

	// signed heading error in the horizontal plane, positive when the target
	// is to the right (east of a north heading)
	heading := math.Atan2(forward.X, forward.Z)
	bearing := math.Atan2(dir.X, dir.Z)
	turn := wrapAngle(bearing - heading)

	climb := math.Asin(clampUnit(dir.Y)) - math.Asin(clampUnit(forward.Y))

	c.SetControls(flight.Controls{
		Pitch:      clampUnit(climb * a.Gain),
		Roll:       clampUnit(turn * a.Gain),
		Accelerate: dist > 600,
		Decelerate: dist < 150,
	})

	if a.sinceShot >= a.FireInterval && math.Acos(clampUnit(forward.Normalize().Dot(dir))) <= a.FireCone {
		a.sinceShot = 0
		c.Push(Shoot)
	}
}

func wrapAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

func clampUnit(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}
