// Package elevation holds the sampled heightmap the world is built on and the
// point queries every placement caller uses.
package elevation

import (
	"math"

	"github.com/skywatch/saucerdefense/internal/geo"
)

const (
	// WaterLevel is the raw elevation at or below which a sample is sea.
	WaterLevel = 0.0
	// UnderwaterHeight is the single height every water surface is snapped to.
	UnderwaterHeight = WaterLevel - 0.1

	// edgeTolerance is how far past the grid edge, as a fraction of its
	// side, a query still counts as on the edge.
	edgeTolerance = 1e-9
)

// Metadata describes a loaded grid.
type Metadata struct {
	GridSize     int        `json:"gridSize"`
	Bounds       geo.Bounds `json:"bounds"`
	MinElevation float64    `json:"minElevation"`
	MaxElevation float64    `json:"maxElevation"`
	AvgElevation float64    `json:"avgElevation"`
	CreatedAt    string     `json:"createdAt,omitempty"`
}

// Grid is a square, row-major sample array. Row 0 is the northern edge and
// column 0 the western edge. Missing samples are NaN.
type Grid struct {
	Size    int
	Samples []float64
}

// At returns the raw sample at row, col.
func (g Grid) At(row, col int) float64 {
	return g.Samples[row*g.Size+col]
}

// Sampling fixes how local coordinates map onto the grid. Terrain meshes must
// be built with the same WorldSize for heights to agree.
type Sampling struct {
	WorldSize   float64
	HeightScale float64
}

// HalfExtent is half the side of the square the grid is stretched across.
func (s Sampling) HalfExtent() float64 {
	return s.WorldSize * geo.FitFraction / 2
}

// SurfaceHeight converts a raw sample into a world height. Every water sample
// maps to exactly UnderwaterHeight and missing samples to WaterLevel.
func SurfaceHeight(sample, heightScale float64) float64 {
	if math.IsNaN(sample) {
		return WaterLevel
	}
	if sample <= WaterLevel {
		return UnderwaterHeight
	}
	return sample * heightScale
}

// Field is an immutable elevation grid with its sampling parameters.
type Field struct {
	meta     Metadata
	grid     Grid
	sampling Sampling

	// Fallback marks procedurally generated terrain substituted for real data.
	Fallback bool
}

// NewField wraps a grid. The grid must be Size×Size.
func NewField(meta Metadata, grid Grid, sampling Sampling) *Field {
	if sampling.HeightScale == 0 {
		sampling.HeightScale = 1
	}
	meta.GridSize = grid.Size
	return &Field{meta: meta, grid: grid, sampling: sampling}
}

// Metadata returns the grid metadata.
func (f *Field) Metadata() Metadata { return f.meta }

// Grid returns the raw samples.
func (f *Field) Grid() Grid { return f.grid }

// Sampling returns the local-to-grid mapping parameters.
func (f *Field) Sampling() Sampling { return f.sampling }

// Cell maps local coordinates to grid indices. ok is false outside the
// sampled square.
func (f *Field) Cell(x, z float64) (row, col int, ok bool) {
	n := f.grid.Size
	if n == 0 || math.IsNaN(x) || math.IsNaN(z) {
		return 0, 0, false
	}
	half := f.sampling.HalfExtent()
	u, okU := unit((x + half) / (2 * half))
	v, okV := unit((half - z) / (2 * half))
	if !okU || !okV {
		return 0, 0, false
	}
	col = int(math.Floor(u * float64(n-1)))
	row = int(math.Floor(v * float64(n-1)))
	return row, col, true
}

// unit clamps t onto [0, 1], accepting values within edgeTolerance of the
// range so points computed on the grid edge stay inside.
func unit(t float64) (float64, bool) {
	switch {
	case t < -edgeTolerance || t > 1+edgeTolerance:
		return 0, false
	case t < 0:
		return 0, true
	case t > 1:
		return 1, true
	}
	return t, true
}

// ElevationAt returns the surface height at local (x, z). Queries outside the
// grid or on missing samples return WaterLevel.
func (f *Field) ElevationAt(x, z float64) float64 {
	row, col, ok := f.Cell(x, z)
	if !ok {
		return WaterLevel
	}
	return SurfaceHeight(f.grid.At(row, col), f.sampling.HeightScale)
}

// IsWater reports whether the surface at (x, z) is the water plane.
func (f *Field) IsWater(x, z float64) bool {
	return f.ElevationAt(x, z) == UnderwaterHeight
}

// computeStats fills min, max and avg from the finite samples.
func computeStats(meta *Metadata, grid Grid) {
	minE, maxE, sum, n := math.Inf(1), math.Inf(-1), 0.0, 0
	for _, s := range grid.Samples {
		if math.IsNaN(s) {
			continue
		}
		minE = math.Min(minE, s)
		maxE = math.Max(maxE, s)
		sum += s
		n++
	}
	if n == 0 {
		return
	}
	meta.MinElevation = minE
	meta.MaxElevation = maxE
	meta.AvgElevation = sum / float64(n)
}
