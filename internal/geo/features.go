package geo

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/peterstace/simplefeatures/geom"
	"github.com/rs/zerolog"
)

// ErrNotFeatureCollection is returned when a document is not a GeoJSON
// FeatureCollection.
var ErrNotFeatureCollection = errors.New("not a GeoJSON FeatureCollection")

// Feature is one parsed shoreline or road feature.
type Feature struct {
	Geometry   geom.Geometry
	Properties map[string]any
}

type rawFeatureCollection struct {
	Type     string            `json:"type"`
	Features []json.RawMessage `json:"features"`
}

type rawFeature struct {
	Geometry   json.RawMessage `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

// ParseFeatureCollection decodes a GeoJSON FeatureCollection. Features whose
// geometry is missing or malformed are skipped and logged at debug level.
func ParseFeatureCollection(data []byte, log zerolog.Logger) ([]Feature, error) {
	var fc rawFeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("decode feature collection: %w", err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("%w: type %q", ErrNotFeatureCollection, fc.Type)
	}

	features := make([]Feature, 0, len(fc.Features))
	for i, raw := range fc.Features {
		var f rawFeature
		if err := json.Unmarshal(raw, &f); err != nil {
			log.Debug().Err(err).Int("feature", i).Msg("Skipping undecodable feature")
			continue
		}
		if len(f.Geometry) == 0 || string(f.Geometry) == "null" {
			log.Debug().Int("feature", i).Msg("Skipping feature without geometry")
			continue
		}
		g, err := geom.UnmarshalGeoJSON(f.Geometry)
		if err != nil {
			log.Debug().Err(err).Int("feature", i).Msg("Skipping malformed geometry")
			continue
		}
		features = append(features, Feature{Geometry: g, Properties: f.Properties})
	}
	return features, nil
}

// lineParts flattens a geometry into its coordinate runs: each line string,
// each polygon ring. Other geometry types yield nothing.
func lineParts(g geom.Geometry) []geom.LineString {
	switch g.Type() {
	case geom.TypeLineString:
		ls, _ := g.AsLineString()
		return []geom.LineString{ls}
	case geom.TypeMultiLineString:
		mls, _ := g.AsMultiLineString()
		parts := make([]geom.LineString, 0, mls.NumLineStrings())
		for i := 0; i < mls.NumLineStrings(); i++ {
			parts = append(parts, mls.LineStringN(i))
		}
		return parts
	case geom.TypePolygon:
		poly, _ := g.AsPolygon()
		return polygonRings(poly)
	case geom.TypeMultiPolygon:
		mp, _ := g.AsMultiPolygon()
		var parts []geom.LineString
		for i := 0; i < mp.NumPolygons(); i++ {
			parts = append(parts, polygonRings(mp.PolygonN(i))...)
		}
		return parts
	}
	return nil
}

func polygonRings(poly geom.Polygon) []geom.LineString {
	if poly.IsEmpty() {
		return nil
	}
	rings := []geom.LineString{poly.ExteriorRing()}
	for i := 0; i < poly.NumInteriorRings(); i++ {
		rings = append(rings, poly.InteriorRingN(i))
	}
	return rings
}

// ProjectFeatures runs every line and ring of the features through the
// projection and returns them as local-space line strings (X east, Y holding
// the local z). Parts with fewer than two points are dropped.
func ProjectFeatures(p *Projection, features []Feature, applyScale bool, log zerolog.Logger) ([]geom.LineString, error) {
	var out []geom.LineString
	for i, f := range features {
		for _, part := range lineParts(f.Geometry) {
			seq := part.Coordinates()
			if seq.Length() < 2 {
				log.Debug().Int("feature", i).Int("points", seq.Length()).Msg("Skipping degenerate line")
				continue
			}
			flat := make([]float64, 0, seq.Length()*2)
			for j := 0; j < seq.Length(); j++ {
				xy := seq.GetXY(j)
				local, err := p.ProjectToLocal(xy.X, xy.Y, applyScale)
				if err != nil {
					return nil, fmt.Errorf("project feature %d: %w", i, err)
				}
				flat = append(flat, local.X, local.Z)
			}
			out = append(out, geom.NewLineString(geom.NewSequence(flat, geom.DimXY)))
		}
	}
	return out, nil
}

// FeatureBounds returns the geographic box covering every line and ring, and
// false when the features hold no coordinates.
func FeatureBounds(features []Feature) (Bounds, bool) {
	b := Bounds{
		MinLon: math.Inf(1), MaxLon: math.Inf(-1),
		MinLat: math.Inf(1), MaxLat: math.Inf(-1),
	}
	found := false
	for _, f := range features {
		for _, part := range lineParts(f.Geometry) {
			seq := part.Coordinates()
			for j := 0; j < seq.Length(); j++ {
				xy := seq.GetXY(j)
				b = b.Extend(GeoPoint{Lon: xy.X, Lat: xy.Y})
				found = true
			}
		}
	}
	if !found {
		return Bounds{}, false
	}
	return b, true
}
