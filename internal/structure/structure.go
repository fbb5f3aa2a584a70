// Package structure models the defended landmark: its health and the
// collision shape saucer lasers aim at.
package structure

import (
	"github.com/rs/zerolog"

	"github.com/skywatch/saucerdefense/internal/elevation"
	"github.com/skywatch/saucerdefense/internal/vec"
)

const (
	// MaxHealth is the starting health.
	MaxHealth = 100.0
	// DefaultLaserDamage is the health removed by one laser hit.
	DefaultLaserDamage = 0.5
)

// thresholds are the health percentages logged when first crossed.
var thresholds = []float64{75, 50, 25, 0}

// Structure is the landmark the player defends. Health only goes down.
type Structure struct {
	base       vec.Vec3
	appearance Appearance
	health     float64
	crossed    int // number of thresholds already logged

	log zerolog.Logger
}

// New creates a structure at full health standing at base.
func New(base vec.Vec3, appearance Appearance, log zerolog.Logger) *Structure {
	if appearance == nil {
		appearance = Lattice
	}
	return &Structure{
		base:       base,
		appearance: appearance,
		health:     MaxHealth,
		log:        log.With().Str("component", "structure").Str("appearance", appearance.Name()).Logger(),
	}
}

// Place stands the structure on the terrain at (x, z).
func Place(field *elevation.Field, x, z float64, appearance Appearance, log zerolog.Logger) *Structure {
	return New(vec.Vec3{X: x, Y: field.ElevationAt(x, z), Z: z}, appearance, log)
}

// Position returns the base of the structure.
func (s *Structure) Position() vec.Vec3 { return s.base }

// Appearance returns the visual variant.
func (s *Structure) Appearance() Appearance { return s.appearance }

// Health returns the remaining health in [0, MaxHealth].
func (s *Structure) Health() float64 { return s.health }

// HealthPercent returns health as a percentage of MaxHealth.
func (s *Structure) HealthPercent() float64 { return s.health / MaxHealth * 100 }

// Destroyed reports whether health has reached zero.
func (s *Structure) Destroyed() bool { return s.health <= 0 }

// TakeDamage removes amount from health, clamping at zero, and reports
// whether the structure is destroyed. Non-positive amounts change nothing.
func (s *Structure) TakeDamage(amount float64) bool {
	if amount > 0 && s.health > 0 {
		s.health -= amount
		if s.health < 0 {
			s.health = 0
		}
		s.logThresholds()
	}
	return s.Destroyed()
}

func (s *Structure) logThresholds() {
	pct := s.HealthPercent()
	for s.crossed < len(thresholds) && pct <= thresholds[s.crossed] {
		th := thresholds[s.crossed]
		s.crossed++
		if th == 0 {
			s.log.Warn().Msg("Structure destroyed")
			continue
		}
		s.log.Info().Float64("threshold", th).Float64("health", s.health).Msg("Structure health threshold crossed")
	}
}

// Center returns the point lasers aim at, two thirds up the collider.
func (s *Structure) Center() vec.Vec3 {
	return s.base.Add(vec.Vec3{Y: s.appearance.Collision().Height * 2 / 3})
}

// IntersectsSegment reports whether the segment from→to touches the
// structure's collision cylinder.
func (s *Structure) IntersectsSegment(from, to vec.Vec3) bool {
	return segmentHitsCylinder(from, to, s.base, s.appearance.Collision())
}
