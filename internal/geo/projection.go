package geo

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog"
	"github.com/wroge/wgs84"
)

// DefaultWorldWidth is used when SetTerrainSize is never called.
const DefaultWorldWidth = 4000.0

// FitFraction is the share of the world width the dataset is scaled to fill.
const FitFraction = 0.8

// ErrNotCentered is returned when a conversion needs a projection centre that
// was never set and no fallback centre is configured.
var ErrNotCentered = errors.New("projection center not set")

// ErrUnsupportedZone is returned when the transform for a UTM zone yields no
// usable coordinates.
var ErrUnsupportedZone = errors.New("unsupported projection zone")

type transformFunc func(a, b, c float64) (float64, float64, float64)

// planar holds one UTM zone's forward and inverse transforms and a centre.
type planar struct {
	zone     int
	north    bool
	toPlanar transformFunc
	toGeo    transformFunc
	cx, cy   float64
}

// Projection converts between WGS84 and the centred, scaled local game space.
// It is built once at startup and shared by every consumer so that terrain,
// shoreline, roads and entities stay aligned.
type Projection struct {
	mu sync.RWMutex

	worldWidth float64
	bounds     Bounds
	scale      float64
	centered   bool
	active     *planar

	fallback     *planar
	fallbackWarn sync.Once

	log zerolog.Logger
}

// Option configures a Projection.
type Option func(*Projection)

// WithLogger sets the logger used for fallback warnings.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Projection) {
		p.log = log
	}
}

// WithFallbackCenter lets ProjectToLocal work before SetProjectionCenter by
// projecting around an approximate regional centre. Results are best-effort:
// they will not line up with data projected after centring.
func WithFallbackCenter(center GeoPoint) Option {
	return func(p *Projection) {
		pl, err := newPlanar(center)
		if err != nil {
			p.log.Error().Err(err).Float64("lon", center.Lon).Float64("lat", center.Lat).
				Msg("Ignoring unusable fallback projection center")
			return
		}
		p.fallback = pl
	}
}

// NewProjection creates an uncentred projection with scale 1.
func NewProjection(opts ...Option) *Projection {
	p := &Projection{
		worldWidth: DefaultWorldWidth,
		scale:      1,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// UTMZone returns the UTM zone number (1-60) for a longitude.
func UTMZone(lon float64) int {
	zone := int(math.Floor((lon+180)/6)) + 1
	if zone > 60 {
		zone = 60
	}
	if zone < 1 {
		zone = 1
	}
	return zone
}

// utmEPSG returns the WGS 84 / UTM EPSG code for a zone.
func utmEPSG(zone int, north bool) int {
	if north {
		return 32600 + zone
	}
	return 32700 + zone
}

func newPlanar(center GeoPoint) (*planar, error) {
	zone := UTMZone(center.Lon)
	north := center.Lat >= 0
	code := utmEPSG(zone, north)

	epsg := wgs84.EPSG()
	pl := &planar{
		zone:     zone,
		north:    north,
		toPlanar: transformFunc(epsg.Transform(4326, code)),
		toGeo:    transformFunc(epsg.Transform(code, 4326)),
	}

	x, y, _ := pl.toPlanar(center.Lon, center.Lat, 0)
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return nil, fmt.Errorf("%w: EPSG:%d", ErrUnsupportedZone, code)
	}
	pl.cx, pl.cy = x, y
	return pl, nil
}

// SetTerrainSize records the world width the dataset must fit. Call it before
// SetProjectionCenter.
func (p *Projection) SetTerrainSize(worldWidth float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.worldWidth = worldWidth
}

// WorldWidth returns the configured world width.
func (p *Projection) WorldWidth() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.worldWidth
}

// SetProjectionCenter centres the projection on the bounding box and computes
// the uniform scale that fits its larger projected side into 80% of the world
// width. A second call replaces the previous session state.
func (p *Projection) SetProjectionCenter(minLon, maxLon, minLat, maxLat float64) error {
	b := Bounds{MinLon: minLon, MaxLon: maxLon, MinLat: minLat, MaxLat: maxLat}
	if !b.Valid() {
		return fmt.Errorf("%w: bounds %+v", ErrInvalidCoordinates, b)
	}

	pl, err := newPlanar(b.Center())
	if err != nil {
		return err
	}

	w, h := projectedExtent(pl, b)
	larger := math.Max(w, h)

	p.mu.Lock()
	defer p.mu.Unlock()

	p.scale = 1
	if larger > 0 {
		p.scale = p.worldWidth * FitFraction / larger
	}
	p.bounds = b
	p.active = pl
	p.centered = true

	p.log.Info().
		Int("utmZone", pl.zone).
		Bool("north", pl.north).
		Float64("scale", p.scale).
		Float64("projectedWidth", w).
		Float64("projectedHeight", h).
		Msg("Projection centered")
	return nil
}

// projectedExtent returns the planar width and height of the box's corners.
func projectedExtent(pl *planar, b Bounds) (w, h float64) {
	corners := [4]GeoPoint{
		{b.MinLon, b.MinLat},
		{b.MaxLon, b.MinLat},
		{b.MinLon, b.MaxLat},
		{b.MaxLon, b.MaxLat},
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range corners {
		x, y, _ := pl.toPlanar(c.Lon, c.Lat, 0)
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	return maxX - minX, maxY - minY
}

// IsCentered reports whether SetProjectionCenter has run.
func (p *Projection) IsCentered() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.centered
}

// Scale returns the planar-metres to world-units factor (1 until centred).
func (p *Projection) Scale() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.scale
}

// Bounds returns the bounding box passed to SetProjectionCenter.
func (p *Projection) Bounds() Bounds {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.bounds
}

// Zone returns the UTM zone in use, or 0 before centring.
func (p *Projection) Zone() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.active == nil {
		return 0
	}
	return p.active.zone
}

// ProjectToLocal converts a geographic coordinate to local space. Before
// SetProjectionCenter it uses the fallback centre (logging a warning once)
// and returns ErrNotCentered when there is none.
func (p *Projection) ProjectToLocal(lon, lat float64, applyScale bool) (LocalPoint, error) {
	p.mu.RLock()
	pl := p.active
	scale := p.scale
	p.mu.RUnlock()

	if pl == nil {
		if p.fallback == nil {
			return LocalPoint{}, ErrNotCentered
		}
		p.fallbackWarn.Do(func() {
			p.log.Warn().
				Int("utmZone", p.fallback.zone).
				Msg("Projecting before SetProjectionCenter, using approximate fallback center")
		})
		pl = p.fallback
	}

	x, y, _ := pl.toPlanar(lon, lat, 0)
	local := LocalPoint{X: x - pl.cx, Z: y - pl.cy}
	if applyScale {
		local.X *= scale
		local.Z *= scale
	}
	return local, nil
}

// LocalToGeo is the inverse of ProjectToLocal. It requires a centred
// projection.
func (p *Projection) LocalToGeo(x, z float64, isScaled bool) (GeoPoint, error) {
	p.mu.RLock()
	pl := p.active
	scale := p.scale
	p.mu.RUnlock()

	if pl == nil {
		return GeoPoint{}, ErrNotCentered
	}
	if isScaled {
		x /= scale
		z /= scale
	}
	lon, lat, _ := pl.toGeo(x+pl.cx, z+pl.cy, 0)
	return GeoPoint{Lon: lon, Lat: lat}, nil
}
