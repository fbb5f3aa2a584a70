// Package combat resolves projectile hits on saucers, turns saucer laser shots
// into combat events and decides the session outcome.
package combat

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/skywatch/saucerdefense/internal/structure"
	"github.com/skywatch/saucerdefense/internal/ufo"
	"github.com/skywatch/saucerdefense/internal/vec"
	"github.com/skywatch/saucerdefense/pkg/core"
)

const instrumentationName = "github.com/skywatch/saucerdefense/internal/combat"

// Params are the player weapon tunables.
type Params struct {
	ProjectileSpeed float64
	Lifespan        float64 // seconds
	HitRadius       float64
	ScorePerKill    int
}

// DefaultParams returns the stock weapon.
func DefaultParams() Params {
	return Params{
		ProjectileSpeed: 600,
		Lifespan:        2,
		HitRadius:       14,
		ScorePerKill:    100,
	}
}

// Projectile is one player shot.
type Projectile struct {
	Position  vec.Vec3
	Velocity  vec.Vec3
	Direction vec.Vec3
	TimeAlive float64
	Lifespan  float64
}

// Resolver owns the live projectiles, the score and the outcome.
type Resolver struct {
	params    Params
	fleet     *ufo.Fleet
	structure *structure.Structure
	log       zerolog.Logger

	projectiles []*Projectile
	score       int
	destroyed   int
	outcome     core.Outcome
	wasDown     bool

	kills     metric.Int64Counter
	laserHits metric.Int64Counter
}

// NewResolver creates a resolver for a fleet defending against structure.
func NewResolver(params Params, fleet *ufo.Fleet, s *structure.Structure, log zerolog.Logger) (*Resolver, error) {
	r := &Resolver{
		params:    params,
		fleet:     fleet,
		structure: s,
		log:       log.With().Str("component", "combat").Logger(),
	}

	m := otel.Meter(instrumentationName)
	var err error
	r.kills, err = m.Int64Counter(
		"combat.ufos.destroyed",
		metric.WithDescription("Saucers shot down"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating kills counter: %w", err)
	}
	r.laserHits, err = m.Int64Counter(
		"combat.laser.hits",
		metric.WithDescription("Laser shots that hit the structure"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating laser hits counter: %w", err)
	}
	return r, nil
}

// Fire launches a projectile from origin along direction. inheritedSpeed is
// the shooter's own speed, added to the muzzle speed.
func (r *Resolver) Fire(origin, direction vec.Vec3, inheritedSpeed float64) *Projectile {
	dir := direction.Normalize()
	p := &Projectile{
		Position:  origin,
		Direction: dir,
		Velocity:  dir.Scale(r.params.ProjectileSpeed + inheritedSpeed),
		Lifespan:  r.params.Lifespan,
	}
	r.projectiles = append(r.projectiles, p)
	return p
}

// Projectiles returns the live projectiles.
func (r *Resolver) Projectiles() []*Projectile { return r.projectiles }

// Score returns the points earned.
func (r *Resolver) Score() int { return r.score }

// Destroyed returns how many saucers were shot down.
func (r *Resolver) Destroyed() int { return r.destroyed }

// Spawned returns the size of the fleet at the start.
func (r *Resolver) Spawned() int { return r.fleet.Spawned() }

// Outcome returns the session outcome, OutcomeNone while still playing.
func (r *Resolver) Outcome() core.Outcome { return r.outcome }

// Resolve runs one frame of combat: laser shots reported by the fleet this
// frame, projectile movement and expiry, projectile hits, then the outcome
// check. It returns the frame's combat events. Once an outcome is reached it
// does nothing.
func (r *Resolver) Resolve(dt float64, fleetEvents []ufo.FleetEvent) []core.CombatEvent {
	if r.outcome != core.OutcomeNone {
		return nil
	}
	var events []core.CombatEvent

	for _, fe := range fleetEvents {
		if shot := fe.Report.Laser; shot != nil {
			events = append(events, r.laserEvents(fe.UFO, shot)...)
		}
		if fe.Report.Crashed {
			events = append(events, core.CombatEvent{
				Name:     core.EventUFOCrashed,
				Position: core.Position3D(fe.UFO.Position()),
				UFOID:    fe.UFO.ID,
			})
		}
	}

	live := r.projectiles[:0]
	for _, p := range r.projectiles {
		p.TimeAlive += dt
		if p.TimeAlive > p.Lifespan {
			continue
		}
		p.Position = p.Position.Add(p.Velocity.Scale(dt))

		if u := r.hitTest(p.Position); u != nil {
			u.Hit()
			u.Settle()
			r.score += r.params.ScorePerKill
			r.destroyed++
			r.kills.Add(context.Background(), 1)
			events = append(events, core.CombatEvent{
				Name:     core.EventUFOHit,
				Position: core.Position3D(u.Position()),
				UFOID:    u.ID,
				Score:    r.score,
			})
			continue
		}
		live = append(live, p)
	}
	// drop references held past the new length
	for i := len(live); i < len(r.projectiles); i++ {
		r.projectiles[i] = nil
	}
	r.projectiles = live

	if e, ok := r.checkOutcome(); ok {
		events = append(events, e)
	}
	return events
}

func (r *Resolver) laserEvents(u *ufo.UFO, shot *ufo.LaserShot) []core.CombatEvent {
	events := []core.CombatEvent{{
		Name:     core.EventLaserFired,
		Position: core.Position3D(shot.From),
		UFOID:    u.ID,
	}}
	if !shot.Hit {
		return events
	}
	r.laserHits.Add(context.Background(), 1)
	events = append(events,
		core.CombatEvent{
			Name:     core.EventLaserHit,
			Position: core.Position3D(shot.To),
			UFOID:    u.ID,
			Amount:   shot.Damage,
		},
		core.CombatEvent{
			Name:     core.EventStructureDamaged,
			Position: core.Position3D(r.structure.Position()),
			UFOID:    u.ID,
			Amount:   r.structure.HealthPercent(),
		},
	)
	if r.structure.Destroyed() && !r.wasDown {
		r.wasDown = true
		events = append(events, core.CombatEvent{
			Name:     core.EventStructureDestroyed,
			Position: core.Position3D(r.structure.Position()),
			UFOID:    u.ID,
		})
	}
	return events
}

// hitTest returns the first flying saucer within HitRadius of pos.
func (r *Resolver) hitTest(pos vec.Vec3) *ufo.UFO {
	for _, u := range r.fleet.All() {
		if u.State() != ufo.Flying {
			continue
		}
		if u.Position().DistanceTo(pos) < r.params.HitRadius {
			return u
		}
	}
	return nil
}

// checkOutcome decides the session once. The structure falls during the
// saucer update, before projectiles resolve, so defeat is checked first.
func (r *Resolver) checkOutcome() (core.CombatEvent, bool) {
	switch {
	case r.structure.Destroyed():
		r.outcome = core.OutcomeDefeat
		r.log.Info().Int("score", r.score).Int("destroyed", r.destroyed).Msg("Structure destroyed, game lost")
		return core.CombatEvent{Name: core.EventDefeat, UFOID: -1, Score: r.score}, true
	case r.destroyed >= r.fleet.Spawned():
		r.outcome = core.OutcomeVictory
		r.log.Info().Int("score", r.score).Float64("health", r.structure.Health()).Msg("All saucers destroyed, game won")
		return core.CombatEvent{Name: core.EventVictory, UFOID: -1, Score: r.score, Amount: r.structure.Health()}, true
	}
	return core.CombatEvent{}, false
}
