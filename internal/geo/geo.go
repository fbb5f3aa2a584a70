package geo

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// GeoPoint is a WGS84 longitude/latitude pair in degrees.
type GeoPoint struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// LocalPoint is a position in world units relative to the projection centre.
// X grows eastward and Z grows northward.
type LocalPoint struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
}

// Bounds is a geographic bounding box in degrees.
type Bounds struct {
	MinLon float64 `json:"minLon" mapstructure:"minLon"`
	MaxLon float64 `json:"maxLon" mapstructure:"maxLon"`
	MinLat float64 `json:"minLat" mapstructure:"minLat"`
	MaxLat float64 `json:"maxLat" mapstructure:"maxLat"`
}

// Center returns the arithmetic centroid of the box.
func (b Bounds) Center() GeoPoint {
	return GeoPoint{
		Lon: (b.MinLon + b.MaxLon) / 2,
		Lat: (b.MinLat + b.MaxLat) / 2,
	}
}

// Valid reports whether the box is finite, non-inverted and on the globe.
func (b Bounds) Valid() bool {
	for _, v := range []float64{b.MinLon, b.MaxLon, b.MinLat, b.MaxLat} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.MinLon <= b.MaxLon && b.MinLat <= b.MaxLat &&
		b.MinLon >= -180 && b.MaxLon <= 180 &&
		b.MinLat >= -90 && b.MaxLat <= 90
}

// Contains reports whether p lies inside the box, edges included.
func (b Bounds) Contains(p GeoPoint) bool {
	return p.Lon >= b.MinLon && p.Lon <= b.MaxLon &&
		p.Lat >= b.MinLat && p.Lat <= b.MaxLat
}

// Extend grows the box to include p.
func (b Bounds) Extend(p GeoPoint) Bounds {
	return Bounds{
		MinLon: math.Min(b.MinLon, p.Lon),
		MaxLon: math.Max(b.MaxLon, p.Lon),
		MinLat: math.Min(b.MinLat, p.Lat),
		MaxLat: math.Max(b.MaxLat, p.Lat),
	}
}

// ParseGeoPoint parses a string in the format "long,lat" into a GeoPoint.
func ParseGeoPoint(coords string) (GeoPoint, error) {
	coordsSplit := strings.Split(coords, ",")
	if len(coordsSplit) < 2 {
		return GeoPoint{}, ErrInvalidCoordinates
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[0]), 64)
	if err != nil {
		return GeoPoint{}, ErrInvalidCoordinates
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[1]), 64)
	if err != nil {
		return GeoPoint{}, ErrInvalidCoordinates
	}
	if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return GeoPoint{}, ErrInvalidCoordinates
	}
	return GeoPoint{Lon: lon, Lat: lat}, nil
}
