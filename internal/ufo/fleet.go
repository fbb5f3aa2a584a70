package ufo

import (
	"math"
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/skywatch/saucerdefense/internal/vec"
)

// Fleet is the set of saucers spawned for one session.
type Fleet struct {
	ufos []*UFO
}

// SpawnFleet creates n saucers spread evenly around center.
func SpawnFleet(n int, center vec.Vec3, params Params, rng *rand.Rand, log zerolog.Logger) *Fleet {
	f := &Fleet{ufos: make([]*UFO, 0, n)}
	for i := 0; i < n; i++ {
		angle := 2 * math.Pi * float64(i) / float64(n)
		f.ufos = append(f.ufos, New(i, center, angle, params, rng, log))
	}
	log.Info().Int("count", n).Float64("radius", params.Radius).Float64("height", params.Height).Msg("Fleet spawned")
	return f
}

// All returns every saucer, crashed ones included.
func (f *Fleet) All() []*UFO { return f.ufos }

// Spawned returns how many saucers the fleet started with.
func (f *Fleet) Spawned() int { return len(f.ufos) }

// Count returns how many saucers are in state s.
func (f *Fleet) Count(s State) int {
	n := 0
	for _, u := range f.ufos {
		if u.state == s {
			n++
		}
	}
	return n
}

// FleetEvent pairs a saucer with its per-frame report.
type FleetEvent struct {
	UFO    *UFO
	Report Report
}

// Update advances every saucer and returns the ones with something to report.
func (f *Fleet) Update(dt float64, target Target, ground Ground) []FleetEvent {
	var events []FleetEvent
	for _, u := range f.ufos {
		r := u.Update(dt, target, ground)
		if r.Laser != nil || r.Crashed {
			events = append(events, FleetEvent{UFO: u, Report: r})
		}
	}
	return events
}
