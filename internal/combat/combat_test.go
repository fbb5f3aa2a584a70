package combat

import (
	"math/rand"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skywatch/saucerdefense/internal/structure"
	"github.com/skywatch/saucerdefense/internal/ufo"
	"github.com/skywatch/saucerdefense/internal/vec"
	"github.com/skywatch/saucerdefense/pkg/core"
)

func setup(t *testing.T, n int) (*Resolver, *ufo.Fleet, *structure.Structure) {
	t.Helper()
	s := structure.New(vec.Vec3{}, structure.Lattice, zerolog.Nop())
	fleet := ufo.SpawnFleet(n, vec.Vec3{}, ufo.DefaultParams(), rand.New(rand.NewSource(5)), zerolog.Nop())
	r, err := NewResolver(DefaultParams(), fleet, s, zerolog.Nop())
	require.NoError(t, err)
	return r, fleet, s
}

func count(events []core.CombatEvent, name string) int {
	n := 0
	for _, e := range events {
		if e.Name == name {
			n++
		}
	}
	return n
}

// shootDown fires a round straight through u's current position.
func shootDown(r *Resolver, u *ufo.UFO) []core.CombatEvent {
	origin := u.Position().Sub(vec.Vec3{X: 5})
	r.Fire(origin, vec.UnitX, 0)
	return r.Resolve(0.01, nil)
}

func TestFire(t *testing.T) {
	r, _, _ := setup(t, 1)
	p := r.Fire(vec.Vec3{Y: 10}, vec.Vec3{Z: 3}, 50)

	assert.Equal(t, vec.UnitZ, p.Direction)
	assert.Equal(t, vec.Vec3{Z: 650}, p.Velocity)
	assert.Equal(t, 2.0, p.Lifespan)
	assert.Len(t, r.Projectiles(), 1)
}

func TestResolve_ProjectileExpires(t *testing.T) {
	r, _, _ := setup(t, 1)
	// fire away from the fleet
	r.Fire(vec.Vec3{Y: -1000}, vec.Vec3{Y: -1}, 0)

	for i := 0; i < 7; i++ {
		r.Resolve(0.25, nil)
	}
	require.Len(t, r.Projectiles(), 1, "alive at 1.75s")
	assert.InDelta(t, -1000-600*1.75, r.Projectiles()[0].Position.Y, 1e-9)

	r.Resolve(0.25, nil)
	require.Len(t, r.Projectiles(), 1, "alive at exactly the lifespan")
	r.Resolve(0.25, nil)
	assert.Empty(t, r.Projectiles())
}

func TestResolve_HitScoresAndRemovesProjectile(t *testing.T) {
	r, fleet, _ := setup(t, 3)
	target := fleet.All()[1]

	events := shootDown(r, target)

	assert.Equal(t, ufo.Falling, target.State(), "falls in the frame it was shot")
	assert.False(t, target.LightOn())
	assert.Equal(t, 100, r.Score())
	assert.Equal(t, 1, r.Destroyed())
	assert.Empty(t, r.Projectiles())
	require.Equal(t, 1, count(events, core.EventUFOHit))
	assert.Equal(t, target.ID, events[0].UFOID)
	assert.Equal(t, core.OutcomeNone, r.Outcome())
}

func TestResolve_IgnoresNonFlyingSaucers(t *testing.T) {
	r, fleet, _ := setup(t, 2)
	target := fleet.All()[0]
	target.Hit()

	shootDown(r, target)
	assert.Equal(t, 0, r.Score())
	assert.Len(t, r.Projectiles(), 1, "round keeps flying")
}

func TestResolve_MissOutsideRadius(t *testing.T) {
	r, fleet, _ := setup(t, 1)
	u := fleet.All()[0]

	r.Fire(u.Position().Add(vec.Vec3{Y: 20}), vec.UnitX, 0)
	r.Resolve(0.001, nil)
	assert.Equal(t, ufo.Flying, u.State())
	assert.Equal(t, 0, r.Destroyed())
}

func TestResolve_VictoryOnce(t *testing.T) {
	r, fleet, s := setup(t, 10)

	var all []core.CombatEvent
	for i, u := range fleet.All() {
		// a few laser hits along the way, nowhere near lethal
		s.TakeDamage(structure.DefaultLaserDamage)
		all = append(all, shootDown(r, u)...)
		if i < 9 {
			assert.Equal(t, core.OutcomeNone, r.Outcome())
		}
	}
	for i := 0; i < 100; i++ {
		fleet.Update(1.0/60, nil, nil)
		all = append(all, r.Resolve(1.0/60, nil)...)
	}

	assert.Equal(t, core.OutcomeVictory, r.Outcome())
	assert.Equal(t, 10, r.Destroyed())
	assert.Equal(t, 1000, r.Score())
	assert.Equal(t, 1, count(all, core.EventVictory))
	assert.Equal(t, 0, count(all, core.EventDefeat))

	// the structure falling afterwards changes nothing
	s.TakeDamage(1000)
	assert.Nil(t, r.Resolve(1.0/60, nil))
	assert.Equal(t, core.OutcomeVictory, r.Outcome())
}

func TestResolve_DefeatOnce(t *testing.T) {
	r, fleet, s := setup(t, 4)
	shooter := fleet.All()[0]

	var all []core.CombatEvent
	for !s.Destroyed() {
		destroyed := s.TakeDamage(structure.DefaultLaserDamage)
		shot := &ufo.LaserShot{From: shooter.Position(), To: s.Center(), Hit: true, Damage: 0.5, Destroyed: destroyed}
		all = append(all, r.Resolve(1.0/60, []ufo.FleetEvent{{UFO: shooter, Report: ufo.Report{Laser: shot}}})...)
	}
	for i := 0; i < 10; i++ {
		all = append(all, r.Resolve(1.0/60, nil)...)
	}

	assert.Equal(t, core.OutcomeDefeat, r.Outcome())
	assert.Equal(t, 200, count(all, core.EventLaserFired))
	assert.Equal(t, 200, count(all, core.EventLaserHit))
	assert.Equal(t, 1, count(all, core.EventStructureDestroyed))
	assert.Equal(t, 1, count(all, core.EventDefeat))
	assert.Equal(t, 0, count(all, core.EventVictory))

	// saucers can no longer be scored
	shootDown(r, fleet.All()[1])
	assert.Equal(t, 0, r.Destroyed())
}

func TestResolve_LaserMissOnlyReportsFire(t *testing.T) {
	r, fleet, _ := setup(t, 1)
	u := fleet.All()[0]
	shot := &ufo.LaserShot{From: u.Position(), To: vec.Vec3{X: 999}}

	events := r.Resolve(0.01, []ufo.FleetEvent{{UFO: u, Report: ufo.Report{Laser: shot}}})
	require.Len(t, events, 1)
	assert.Equal(t, core.EventLaserFired, events[0].Name)
}

func TestResolve_CrashReported(t *testing.T) {
	r, fleet, _ := setup(t, 2)
	u := fleet.All()[0]
	shootDown(r, u)

	var crashed int
	for i := 0; i < 600 && u.State() != ufo.Crashed; i++ {
		crashed += count(r.Resolve(1.0/60, fleet.Update(1.0/60, nil, nil)), core.EventUFOCrashed)
	}
	assert.Equal(t, ufo.Crashed, u.State())
	assert.Equal(t, 1, crashed)
}
