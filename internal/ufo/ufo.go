// Package ufo simulates the orbiting saucers: their flight, laser attacks on
// the landmark, and the fall after being shot.
package ufo

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/skywatch/saucerdefense/internal/vec"
)

// State is the lifecycle stage of a saucer. It only moves forward.
type State int

const (
	Flying State = iota
	Hit
	Falling
	Crashed
)

func (s State) String() string {
	switch s {
	case Flying:
		return "flying"
	case Hit:
		return "hit"
	case Falling:
		return "falling"
	case Crashed:
		return "crashed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Target is what the laser shoots at.
type Target interface {
	Center() vec.Vec3
	IntersectsSegment(from, to vec.Vec3) bool
	TakeDamage(amount float64) bool
}

// Ground answers terrain height queries.
type Ground interface {
	ElevationAt(x, z float64) float64
}

// Report lists what happened to a saucer during one Update.
type Report struct {
	Laser   *LaserShot
	Crashed bool
}

// UFO is one saucer.
type UFO struct {
	ID int

	params Params
	center vec.Vec3
	rng    *rand.Rand
	log    zerolog.Logger

	state    State
	angle    float64
	phase    float64
	clock    float64
	position vec.Vec3
	yaw      float64
	tilt     vec.Vec3 // accumulated falling jitter: pitch, yaw, roll
	scale    vec.Vec3

	verticalVelocity float64
	lightOn          bool
	smokeOn          bool
	needsCrashEffect bool

	laser laser
}

// New creates a flying saucer at angle on its orbit around center.
func New(id int, center vec.Vec3, angle float64, params Params, rng *rand.Rand, log zerolog.Logger) *UFO {
	u := &UFO{
		ID:      id,
		params:  params,
		center:  center,
		rng:     rng,
		log:     log.With().Str("component", "ufo").Int("ufo", id).Logger(),
		state:   Flying,
		angle:   angle,
		phase:   rng.Float64() * 2 * math.Pi,
		scale:   vec.Vec3{X: 1, Y: 1, Z: 1},
		lightOn: true,
	}
	u.laser.rearm(params, rng)
	u.placeOnOrbit()
	return u
}

// State returns the lifecycle stage.
func (u *UFO) State() State { return u.state }

// Position returns the current world position.
func (u *UFO) Position() vec.Vec3 { return u.position }

// Orientation returns the current rotation.
func (u *UFO) Orientation() vec.Quat {
	return vec.QuatFromEulerYXZ(u.yaw+u.tilt.Y, u.tilt.X, u.tilt.Z)
}

// Scale returns the mesh scale; y is flattened after a crash.
func (u *UFO) Scale() vec.Vec3 { return u.scale }

// VerticalVelocity returns the falling speed.
func (u *UFO) VerticalVelocity() float64 { return u.verticalVelocity }

// LightOn reports whether the saucer's light is lit.
func (u *UFO) LightOn() bool { return u.lightOn }

// SmokeOn reports whether the smoke trail is emitting.
func (u *UFO) SmokeOn() bool { return u.smokeOn }

// NeedsCrashEffect reports whether an unconsumed crash effect is pending.
func (u *UFO) NeedsCrashEffect() bool { return u.needsCrashEffect }

// Beam returns the active laser beam, if any.
func (u *UFO) Beam() (LaserShot, bool) {
	if u.laser.state != laserFiring {
		return LaserShot{}, false
	}
	return u.laser.shot, true
}

// ConsumeCrashEffect returns true once per crash.
func (u *UFO) ConsumeCrashEffect() bool {
	if !u.needsCrashEffect {
		return false
	}
	u.needsCrashEffect = false
	return true
}

// Hit marks a flying saucer as shot. It reports false, changing nothing, for
// saucers in any other state.
func (u *UFO) Hit() bool {
	if u.state != Flying {
		return false
	}
	u.state = Hit
	u.laser.stop()
	return true
}

// Settle starts the fall of a saucer that was hit, without advancing time.
// It reports false for saucers not in the Hit state.
func (u *UFO) Settle() bool {
	if u.state != Hit {
		return false
	}
	u.startFalling()
	return true
}

// SetPosition moves the saucer, for scripted scenes.
func (u *UFO) SetPosition(p vec.Vec3) { u.position = p }

// Update advances the saucer by dt seconds.
func (u *UFO) Update(dt float64, target Target, ground Ground) Report {
	var r Report
	switch u.state {
	case Flying:
		u.clock += dt
		u.angle += u.params.AngularSpeed * dt
		u.placeOnOrbit()
		if target != nil {
			r.Laser = u.laser.update(dt, u.position, target, u.params, u.rng)
		}
	case Hit:
		u.startFalling()
		r.Crashed = u.fall(dt, ground)
	case Falling:
		r.Crashed = u.fall(dt, ground)
	case Crashed:
	}
	return r
}

func (u *UFO) placeOnOrbit() {
	p := u.params
	sin, cos := math.Sincos(u.angle)
	bob := p.HoverAmplitude * math.Sin(p.HoverFrequency*u.clock+u.phase)
	u.position = vec.Vec3{
		X: u.center.X + p.Radius*cos,
		Y: u.center.Y + p.Height + bob,
		Z: u.center.Z + p.Radius*sin,
	}
	u.yaw = math.Atan2(u.center.X-u.position.X, u.center.Z-u.position.Z)
}

func (u *UFO) startFalling() {
	u.state = Falling
	u.verticalVelocity = 0
	u.lightOn = false
	u.smokeOn = true
	u.log.Debug().Float64("height", u.position.Y).Msg("Saucer falling")
}

// fall integrates one step and reports whether the saucer hit the ground.
func (u *UFO) fall(dt float64, ground Ground) bool {
	u.verticalVelocity += u.params.Gravity * dt
	u.position.Y += u.verticalVelocity * dt

	j := u.params.Jitter
	u.tilt = u.tilt.Add(vec.Vec3{
		X: (u.rng.Float64() - 0.5) * 2 * j,
		Y: (u.rng.Float64() - 0.5) * 2 * j,
		Z: (u.rng.Float64() - 0.5) * 2 * j,
	})

	floor := 0.0
	if u.params.GroundMode == GroundTerrain && ground != nil {
		floor = ground.ElevationAt(u.position.X, u.position.Z)
	}
	if u.position.Y > floor {
		return false
	}

	u.position.Y = floor
	u.verticalVelocity = 0
	u.scale.Y *= u.params.CrashFlatten
	u.state = Crashed
	u.smokeOn = false
	u.needsCrashEffect = true
	u.log.Debug().Float64("x", u.position.X).Float64("z", u.position.Z).Msg("Saucer crashed")
	return true
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}
