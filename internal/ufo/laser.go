package ufo

import (
	"math/rand"

	"github.com/skywatch/saucerdefense/internal/vec"
)

type laserState int

const (
	laserIdle laserState = iota
	laserFiring
)

// LaserShot is one beam fired at the target.
type LaserShot struct {
	From      vec.Vec3
	To        vec.Vec3
	Hit       bool
	Damage    float64
	Destroyed bool // the hit took the target's health to zero
}

// laser is the idle/firing cycle that runs while a saucer flies. While idle
// the cooldown counts down and the fire clock counts up; both must allow a
// shot before the beam fires.
type laser struct {
	state    laserState
	cooldown float64
	clock    float64
	nextFire float64
	beamTime float64
	shot     LaserShot
}

// rearm picks the next cooldown and fire interval.
func (l *laser) rearm(p Params, rng *rand.Rand) {
	l.cooldown = uniform(rng, p.CooldownMin, p.CooldownMax)
	l.nextFire = uniform(rng, p.IntervalMin, p.IntervalMax)
}

func (l *laser) stop() {
	l.state = laserIdle
}

// update advances the cycle and returns the shot fired this step, if any.
func (l *laser) update(dt float64, from vec.Vec3, target Target, p Params, rng *rand.Rand) *LaserShot {
	switch l.state {
	case laserIdle:
		l.cooldown -= dt
		l.clock += dt
		if l.cooldown > 0 || l.clock < l.nextFire {
			return nil
		}
		l.state = laserFiring
		l.beamTime = 0
		l.clock = 0

		aim := target.Center().Add(vec.Vec3{
			X: uniform(rng, -p.AimSpread, p.AimSpread),
			Y: uniform(rng, -p.AimSpread, p.AimSpread),
			Z: uniform(rng, -p.AimSpread, p.AimSpread),
		})
		shot := LaserShot{From: from, To: aim}
		if target.IntersectsSegment(from, aim) {
			shot.Hit = true
			shot.Damage = p.LaserDamage
			shot.Destroyed = target.TakeDamage(p.LaserDamage)
		}
		l.shot = shot
		return &shot

	case laserFiring:
		l.beamTime += dt
		l.shot.From = from
		if l.beamTime >= p.LaserDuration {
			l.state = laserIdle
			l.rearm(p, rng)
		}
	}
	return nil
}
