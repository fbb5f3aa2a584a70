package elevation

import (
	"math"

	"github.com/aquilax/go-perlin"

	"github.com/skywatch/saucerdefense/internal/geo"
)

var nan = math.NaN()

const (
	fallbackAlpha   = 2.0
	fallbackBeta    = 2.0
	fallbackOctaves = int32(3)

	// peak height of generated hills, in metres
	fallbackRelief = 180.0
)

// NewFallbackField generates an island-shaped grid from Perlin noise: land in
// the middle falling off to sea at the edges. The result is marked Fallback.
func NewFallbackField(size int, bounds geo.Bounds, sampling Sampling, seed int64) *Field {
	if size < 2 {
		size = 2
	}
	p := perlin.NewPerlin(fallbackAlpha, fallbackBeta, fallbackOctaves, seed)

	grid := Grid{Size: size, Samples: make([]float64, size*size)}
	for row := 0; row < size; row++ {
		v := float64(row) / float64(size-1)
		for col := 0; col < size; col++ {
			u := float64(col) / float64(size-1)

			// noise in [0,1]
			n := (p.Noise2D(u*4, v*4) + 1) / 2
			d := math.Hypot(u-0.5, v-0.5) * 2
			falloff := 1 - d*d
			grid.Samples[row*size+col] = fallbackRelief*n*falloff - 20
		}
	}

	meta := Metadata{Bounds: bounds}
	computeStats(&meta, grid)

	f := NewField(meta, grid, sampling)
	f.Fallback = true
	return f
}
