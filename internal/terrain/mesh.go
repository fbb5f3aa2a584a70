// Package terrain tessellates an elevation field into a mesh whose triangles
// are partitioned into water and land groups.
package terrain

import (
	"errors"
	"fmt"
	"math"

	"github.com/skywatch/saucerdefense/internal/elevation"
	"github.com/skywatch/saucerdefense/internal/geo"
	"github.com/skywatch/saucerdefense/internal/vec"
)

// WaterEpsilon is the tolerance for a vertex to count as sitting on the water
// plane.
const WaterEpsilon = 1e-3

// ErrInvalidResolution is returned for a grid resolution below one cell.
var ErrInvalidResolution = errors.New("grid resolution must be at least 1")

// FaceKind tags a triangle as water or land.
type FaceKind int

const (
	Water FaceKind = iota
	Land
)

func (k FaceKind) String() string {
	switch k {
	case Water:
		return "water"
	case Land:
		return "land"
	}
	return fmt.Sprintf("FaceKind(%d)", int(k))
}

// FaceGroup is a contiguous range of the index buffer sharing one kind.
// Start and Count are in indices, three per triangle.
type FaceGroup struct {
	Kind  FaceKind
	Start int
	Count int
}

// Mesh is an immutable terrain surface. Vertices are row-major with row 0 on
// the northern edge and column 0 on the western edge.
type Mesh struct {
	resolution int
	side       float64
	positions  []vec.Vec3
	indices    []uint32
	groups     []FaceGroup
	field      *elevation.Field
}

// Build lays a resolution×resolution cell grid over a square of side
// worldSize·0.8 centred on the origin and samples every vertex height from
// the field.
func Build(field *elevation.Field, resolution int, worldSize float64) (*Mesh, error) {
	if resolution < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidResolution, resolution)
	}

	side := worldSize * geo.FitFraction
	half := side / 2
	step := side / float64(resolution)
	stride := resolution + 1

	m := &Mesh{
		resolution: resolution,
		side:       side,
		positions:  make([]vec.Vec3, 0, stride*stride),
		field:      field,
	}

	for j := 0; j <= resolution; j++ {
		z := -gridCoord(j, resolution, half, step)
		for i := 0; i <= resolution; i++ {
			x := gridCoord(i, resolution, half, step)
			m.positions = append(m.positions, vec.Vec3{X: x, Y: field.ElevationAt(x, z), Z: z})
		}
	}

	water := make([]uint32, 0)
	land := make([]uint32, 0, resolution*resolution*6)
	for j := 0; j < resolution; j++ {
		for i := 0; i < resolution; i++ {
			a := uint32(j*stride + i)
			b := uint32((j+1)*stride + i)
			c := a + 1
			d := b + 1

			for _, tri := range [2][3]uint32{{a, c, b}, {c, d, b}} {
				if m.isWaterFace(tri) {
					water = append(water, tri[:]...)
				} else {
					land = append(land, tri[:]...)
				}
			}
		}
	}

	m.indices = append(water, land...)
	if len(water) > 0 {
		m.groups = append(m.groups, FaceGroup{Kind: Water, Start: 0, Count: len(water)})
	}
	if len(land) > 0 {
		m.groups = append(m.groups, FaceGroup{Kind: Land, Start: len(water), Count: len(land)})
	}
	return m, nil
}

// gridCoord returns the centre-relative coordinate of grid line k, counting
// from the negative edge. The last line is pinned to the positive edge so
// rounding cannot push it off the field.
func gridCoord(k, resolution int, half, step float64) float64 {
	if k == resolution {
		return half
	}
	return -half + float64(k)*step
}

func (m *Mesh) isWaterFace(tri [3]uint32) bool {
	for _, idx := range tri {
		if math.Abs(m.positions[idx].Y-elevation.UnderwaterHeight) > WaterEpsilon {
			return false
		}
	}
	return true
}

// Resolution returns the number of cells per side.
func (m *Mesh) Resolution() int { return m.resolution }

// Side returns the side length of the mesh square.
func (m *Mesh) Side() float64 { return m.side }

// Positions returns the vertex positions.
func (m *Mesh) Positions() []vec.Vec3 { return m.positions }

// Indices returns the triangle index buffer, grouped by kind.
func (m *Mesh) Indices() []uint32 { return m.indices }

// Groups returns the face groups, water first.
func (m *Mesh) Groups() []FaceGroup { return m.groups }

// Field returns the elevation field the mesh was sampled from.
func (m *Mesh) Field() *elevation.Field { return m.field }

// Heights returns the vertex heights in vertex order.
func (m *Mesh) Heights() []float64 {
	h := make([]float64, len(m.positions))
	for i, p := range m.positions {
		h[i] = p.Y
	}
	return h
}

// VertexHeight returns the height of the vertex in row j, column i.
func (m *Mesh) VertexHeight(i, j int) float64 {
	return m.positions[j*(m.resolution+1)+i].Y
}

// FaceCount returns the number of triangles of the given kind.
func (m *Mesh) FaceCount(kind FaceKind) int {
	for _, g := range m.groups {
		if g.Kind == kind {
			return g.Count / 3
		}
	}
	return 0
}

// NearestVertexHeight returns the height of the vertex closest to (x, z),
// clamping points outside the mesh onto its edge.
func (m *Mesh) NearestVertexHeight(x, z float64) float64 {
	half := m.side / 2
	step := m.side / float64(m.resolution)
	i := clampIndex(math.Round((x+half)/step), m.resolution)
	j := clampIndex(math.Round((half-z)/step), m.resolution)
	return m.VertexHeight(i, j)
}

func clampIndex(f float64, max int) int {
	if math.IsNaN(f) || f < 0 {
		return 0
	}
	if f > float64(max) {
		return max
	}
	return int(f)
}
