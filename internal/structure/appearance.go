package structure

import (
	"fmt"
	"math"
	"strings"

	"github.com/skywatch/saucerdefense/internal/vec"
)

// Appearance is one visual variant of the landmark. It only decides the
// collision shape; health is shared by every variant.
type Appearance interface {
	Name() string
	// Collision returns the vertical cylinder lasers are tested against.
	Collision() Cylinder
}

// Cylinder is a vertical collision cylinder standing on its base height.
type Cylinder struct {
	Radius float64
	Height float64
}

type variant struct {
	name     string
	collider Cylinder
}

func (v variant) Name() string        { return v.name }
func (v variant) Collision() Cylinder { return v.collider }

// Built-in appearances.
var (
	// Lattice is an open iron lattice tower, wide at the base.
	Lattice Appearance = variant{name: "lattice", collider: Cylinder{Radius: 18, Height: 150}}
	// Needle is a slim observation tower with a saucer-shaped deck.
	Needle Appearance = variant{name: "needle", collider: Cylinder{Radius: 10, Height: 185}}
	// Spire is a stepped skyscraper crowned by a mast.
	Spire Appearance = variant{name: "spire", collider: Cylinder{Radius: 14, Height: 200}}
)

// AppearanceByName resolves a configured variant name.
func AppearanceByName(name string) (Appearance, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "lattice":
		return Lattice, nil
	case "needle":
		return Needle, nil
	case "spire":
		return Spire, nil
	}
	return nil, fmt.Errorf("unknown structure appearance %q", name)
}

// segmentHitsCylinder reports whether the segment from→to passes through the
// cylinder standing at base.
func segmentHitsCylinder(from, to, base vec.Vec3, c Cylinder) bool {
	const eps = 1e-12
	d := to.Sub(from)
	tmin, tmax := 0.0, 1.0

	// vertical slab
	y0, y1 := base.Y, base.Y+c.Height
	if math.Abs(d.Y) < eps {
		if from.Y < y0 || from.Y > y1 {
			return false
		}
	} else {
		t0 := (y0 - from.Y) / d.Y
		t1 := (y1 - from.Y) / d.Y
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		tmin = math.Max(tmin, t0)
		tmax = math.Min(tmax, t1)
		if tmin > tmax {
			return false
		}
	}

	// horizontal disc
	px, pz := from.X-base.X, from.Z-base.Z
	a := d.X*d.X + d.Z*d.Z
	cc := px*px + pz*pz - c.Radius*c.Radius
	if a < eps {
		return cc <= 0
	}
	b := 2 * (px*d.X + pz*d.Z)
	disc := b*b - 4*a*cc
	if disc < 0 {
		return false
	}
	sq := math.Sqrt(disc)
	t0 := (-b - sq) / (2 * a)
	t1 := (-b + sq) / (2 * a)
	return math.Max(tmin, t0) <= math.Min(tmax, t1)
}
