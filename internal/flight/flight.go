// Package flight integrates the player's stick and throttle into the plane's
// attitude and position.
package flight

import (
	"math"

	"github.com/skywatch/saucerdefense/internal/vec"
)

// Controls is one frame of continuous input. Pitch +1 is nose up, Roll +1
// banks right.
type Controls struct {
	Pitch      float64
	Roll       float64
	Accelerate bool
	Decelerate bool
}

// Params are the handling tunables.
type Params struct {
	MinSpeed     float64
	MaxSpeed     float64
	InitialSpeed float64
	Acceleration float64 // speed change per second at full throttle

	PitchSensitivity float64 // target pitch rate at full deflection, rad/s
	RollSensitivity  float64 // target roll rate at full deflection, rad/s
	Smoothing        float64 // rate smoothing, per second
	AutoLevel        float64 // levelling rate with hands off, per second
	BankTurn         float64 // yaw rate per radian of roll

	MaxPitch float64 // radians
	MaxRoll  float64 // radians

	InitialPosition vec.Vec3
	InitialYaw      float64
}

// DefaultParams returns the stock handling.
func DefaultParams() Params {
	return Params{
		MinSpeed:     40,
		MaxSpeed:     180,
		InitialSpeed: 80,
		Acceleration: 40,

		PitchSensitivity: 1.2,
		RollSensitivity:  2.0,
		Smoothing:        5,
		AutoLevel:        8,
		BankTurn:         0.9,

		MaxPitch: 60 * math.Pi / 180,
		MaxRoll:  45 * math.Pi / 180,

		InitialPosition: vec.Vec3{Y: 300, Z: -900},
	}
}

// Plane is the player's aircraft.
type Plane struct {
	params Params

	position  vec.Vec3
	speed     float64
	pitch     float64
	roll      float64
	yaw       float64
	pitchRate float64
	rollRate  float64
	enabled   bool
}

// New creates an enabled plane at its initial state.
func New(params Params) *Plane {
	p := &Plane{params: params, enabled: true}
	p.Reset()
	return p
}

// Reset restores the initial speed, attitude and position.
func (p *Plane) Reset() {
	p.position = p.params.InitialPosition
	p.speed = p.params.InitialSpeed
	p.pitch, p.roll = 0, 0
	p.yaw = p.params.InitialYaw
	p.pitchRate, p.rollRate = 0, 0
}

// SetEnabled pauses or resumes integration without touching state.
func (p *Plane) SetEnabled(enabled bool) { p.enabled = enabled }

// Enabled reports whether Update integrates.
func (p *Plane) Enabled() bool { return p.enabled }

// Update advances the plane by dt seconds.
func (p *Plane) Update(c Controls, dt float64) {
	if !p.enabled {
		return
	}
	pr := p.params

	throttle := 0.0
	if c.Accelerate {
		throttle++
	}
	if c.Decelerate {
		throttle--
	}
	p.speed = clamp(p.speed+throttle*pr.Acceleration*dt, pr.MinSpeed, pr.MaxSpeed)

	alpha := 1 - math.Exp(-pr.Smoothing*dt)
	p.pitchRate += (c.Pitch*pr.PitchSensitivity - p.pitchRate) * alpha
	p.rollRate += (c.Roll*pr.RollSensitivity - p.rollRate) * alpha

	p.pitch += p.pitchRate * dt
	p.roll += p.rollRate * dt

	if c.Pitch == 0 && c.Roll == 0 {
		level := math.Exp(-pr.AutoLevel * dt)
		p.pitch *= level
		p.roll *= level
	}

	p.pitch = clamp(p.pitch, -pr.MaxPitch, pr.MaxPitch)
	p.roll = clamp(p.roll, -pr.MaxRoll, pr.MaxRoll)

	p.yaw += p.roll * pr.BankTurn * dt

	p.position = p.position.Add(p.Forward().Scale(p.speed * dt))
}

// Orientation composes yaw, then pitch, then roll.
func (p *Plane) Orientation() vec.Quat {
	// nose up and right bank are negative rotations about x and z
	return vec.QuatFromEulerYXZ(p.yaw, -p.pitch, -p.roll)
}

// Forward returns the unit nose direction.
func (p *Plane) Forward() vec.Vec3 {
	return p.Orientation().Rotate(vec.UnitZ)
}

// Position returns the plane's position.
func (p *Plane) Position() vec.Vec3 { return p.position }

// SetPosition moves the plane, e.g. to keep it above the terrain.
func (p *Plane) SetPosition(pos vec.Vec3) { p.position = pos }

// Speed returns the airspeed.
func (p *Plane) Speed() float64 { return p.speed }

// Pitch returns the pitch angle in radians, nose up positive.
func (p *Plane) Pitch() float64 { return p.pitch }

// Roll returns the bank angle in radians, right bank positive.
func (p *Plane) Roll() float64 { return p.roll }

// Yaw returns the heading in radians; 0 faces north, increasing turns east.
func (p *Plane) Yaw() float64 { return p.yaw }

// Velocity returns the current velocity vector.
func (p *Plane) Velocity() vec.Vec3 { return p.Forward().Scale(p.speed) }

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
