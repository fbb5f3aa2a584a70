package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lower Manhattan
var testBounds = Bounds{MinLon: -74.02, MaxLon: -73.93, MinLat: 40.70, MaxLat: 40.80}

func centered(t *testing.T, worldWidth float64) *Projection {
	t.Helper()
	p := NewProjection()
	p.SetTerrainSize(worldWidth)
	require.NoError(t, p.SetProjectionCenter(testBounds.MinLon, testBounds.MaxLon, testBounds.MinLat, testBounds.MaxLat))
	return p
}

func TestUTMZone(t *testing.T) {
	tests := []struct {
		lon  float64
		want int
	}{
		{-180, 1},
		{-74, 18},
		{0, 31},
		{13.4, 33},
		{179.9, 60},
		{180, 60},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, UTMZone(tt.lon), "lon %v", tt.lon)
	}
}

func TestProjection_CenterMapsToOrigin(t *testing.T) {
	p := centered(t, 4000)
	assert.True(t, p.IsCentered())
	assert.Equal(t, 18, p.Zone())

	c := testBounds.Center()
	local, err := p.ProjectToLocal(c.Lon, c.Lat, true)
	require.NoError(t, err)
	assert.InDelta(t, 0, local.X, 1e-6)
	assert.InDelta(t, 0, local.Z, 1e-6)
}

func TestProjection_RoundTrip(t *testing.T) {
	p := centered(t, 4000)

	points := []GeoPoint{
		{-74.02, 40.70},
		{-73.93, 40.80},
		{-73.975, 40.75},
		{-74.0, 40.71},
		{-73.95, 40.79},
	}
	for _, scaled := range []bool{true, false} {
		for _, pt := range points {
			local, err := p.ProjectToLocal(pt.Lon, pt.Lat, scaled)
			require.NoError(t, err)
			back, err := p.LocalToGeo(local.X, local.Z, scaled)
			require.NoError(t, err)
			assert.InDelta(t, pt.Lon, back.Lon, 1e-6, "lon scaled=%v", scaled)
			assert.InDelta(t, pt.Lat, back.Lat, 1e-6, "lat scaled=%v", scaled)
		}
	}
}

func TestProjection_ScaleFitsWorld(t *testing.T) {
	for _, width := range []float64{1000, 4000, 12000} {
		p := centered(t, width)

		minX, minZ := math.Inf(1), math.Inf(1)
		maxX, maxZ := math.Inf(-1), math.Inf(-1)
		for _, lon := range []float64{testBounds.MinLon, testBounds.MaxLon} {
			for _, lat := range []float64{testBounds.MinLat, testBounds.MaxLat} {
				l, err := p.ProjectToLocal(lon, lat, true)
				require.NoError(t, err)
				minX, maxX = math.Min(minX, l.X), math.Max(maxX, l.X)
				minZ, maxZ = math.Min(minZ, l.Z), math.Max(maxZ, l.Z)
			}
		}
		larger := math.Max(maxX-minX, maxZ-minZ)
		assert.InDelta(t, FitFraction*width, larger, 1e-6*width, "width %v", width)
	}
}

func TestProjection_Orientation(t *testing.T) {
	p := centered(t, 4000)

	south, err := p.ProjectToLocal(-73.975, 40.71, true)
	require.NoError(t, err)
	north, err := p.ProjectToLocal(-73.975, 40.79, true)
	require.NoError(t, err)
	west, err := p.ProjectToLocal(-74.01, 40.75, true)
	require.NoError(t, err)
	east, err := p.ProjectToLocal(-73.94, 40.75, true)
	require.NoError(t, err)

	assert.Greater(t, north.Z, south.Z, "z grows northward")
	assert.Greater(t, east.X, west.X, "x grows eastward")
}

func TestProjection_SouthernHemisphere(t *testing.T) {
	p := NewProjection()
	require.NoError(t, p.SetProjectionCenter(151.15, 151.30, -33.95, -33.80))
	assert.Equal(t, 56, p.Zone())

	local, err := p.ProjectToLocal(151.2, -33.9, true)
	require.NoError(t, err)
	back, err := p.LocalToGeo(local.X, local.Z, true)
	require.NoError(t, err)
	assert.InDelta(t, 151.2, back.Lon, 1e-6)
	assert.InDelta(t, -33.9, back.Lat, 1e-6)
}

func TestProjection_SecondCenterOverwrites(t *testing.T) {
	p := centered(t, 4000)
	first := p.Scale()

	require.NoError(t, p.SetProjectionCenter(-74.0, -73.99, 40.74, 40.75))
	assert.Greater(t, p.Scale(), first)
	assert.Equal(t, -74.0, p.Bounds().MinLon)
}

func TestProjection_InvalidBounds(t *testing.T) {
	p := NewProjection()
	err := p.SetProjectionCenter(10, 5, 0, 1)
	assert.ErrorIs(t, err, ErrInvalidCoordinates)
	err = p.SetProjectionCenter(0, 1, math.NaN(), 1)
	assert.ErrorIs(t, err, ErrInvalidCoordinates)
	assert.False(t, p.IsCentered())
}

func TestProjection_NotCentered(t *testing.T) {
	p := NewProjection()
	assert.False(t, p.IsCentered())
	assert.Equal(t, 1.0, p.Scale())

	_, err := p.ProjectToLocal(-73.97, 40.75, true)
	assert.ErrorIs(t, err, ErrNotCentered)

	_, err = p.LocalToGeo(10, 10, true)
	assert.ErrorIs(t, err, ErrNotCentered)
}

func TestProjection_FallbackCenter(t *testing.T) {
	p := NewProjection(WithFallbackCenter(GeoPoint{Lon: -73.97, Lat: 40.75}))

	local, err := p.ProjectToLocal(-73.97, 40.75, true)
	require.NoError(t, err)
	assert.InDelta(t, 0, local.X, 1e-6)
	assert.InDelta(t, 0, local.Z, 1e-6)

	// the inverse still refuses until a real centre exists
	_, err = p.LocalToGeo(0, 0, false)
	assert.ErrorIs(t, err, ErrNotCentered)
}
