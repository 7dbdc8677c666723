package geo

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/twpayne/go-polyline"
)

// ToLineString converts a path to an orb line string (lon,lat order).
func (p Path) ToLineString() orb.LineString {
	ls := make(orb.LineString, len(p))
	for i, c := range p {
		ls[i] = orb.Point{c.Lon, c.Lat}
	}
	return ls
}

// FromLineString converts an orb line string to a path.
func FromLineString(ls orb.LineString) Path {
	p := make(Path, len(ls))
	for i, pt := range ls {
		p[i] = Coordinate{Lat: pt.Lat(), Lon: pt.Lon()}
	}
	return p
}

// ToOrb returns a LineString for single-path geometries and a MultiLineString otherwise.
func (g Geometry) ToOrb() orb.Geometry {
	if !g.Multi && len(g.Paths) <= 1 {
		if len(g.Paths) == 0 {
			return orb.LineString{}
		}
		return g.Paths[0].ToLineString()
	}
	mls := make(orb.MultiLineString, len(g.Paths))
	for i, p := range g.Paths {
		mls[i] = p.ToLineString()
	}
	return mls
}

// FromOrb converts LineString and MultiLineString geometries.
func FromOrb(g orb.Geometry) (Geometry, error) {
	switch v := g.(type) {
	case orb.LineString:
		return Line(FromLineString(v)), nil
	case orb.MultiLineString:
		out := Geometry{Multi: true, Paths: make([]Path, len(v))}
		for i, ls := range v {
			out.Paths[i] = FromLineString(ls)
		}
		return out, nil
	case orb.MultiPoint:
		return Line(FromLineString(orb.LineString(v))), nil
	default:
		return Geometry{}, fmt.Errorf("unsupported geometry type %q", g.GeoJSONType())
	}
}

// ParseGeoJSON decodes a GeoJSON geometry object.
func ParseGeoJSON(data []byte) (Geometry, error) {
	gj, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return Geometry{}, fmt.Errorf("decode geojson: %w", err)
	}
	return FromOrb(gj.Geometry())
}

func (g Geometry) MarshalJSON() ([]byte, error) {
	return geojson.NewGeometry(g.ToOrb()).MarshalJSON()
}

func (g *Geometry) UnmarshalJSON(data []byte) error {
	parsed, err := ParseGeoJSON(data)
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// EncodePath encodes a path as a Google encoded polyline.
func EncodePath(p Path) string {
	coords := make([][]float64, len(p))
	for i, c := range p {
		coords[i] = []float64{c.Lat, c.Lon}
	}
	return string(polyline.EncodeCoords(coords))
}

// DecodePath decodes a Google encoded polyline.
func DecodePath(s string) (Path, error) {
	coords, _, err := polyline.DecodeCoords([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("decode polyline: %w", err)
	}
	p := make(Path, len(coords))
	for i, c := range coords {
		p[i] = Coordinate{Lat: c[0], Lon: c[1]}
	}
	return p, nil
}
