package geo

import "math"

// EarthRadius is the mean Earth radius in meters used by Haversine.
const EarthRadius = 6371000.0

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Path is an ordered sequence of coordinates.
type Path []Coordinate

// Geometry is either a single path or a set of disjoint paths.
type Geometry struct {
	Paths []Path
	Multi bool
}

// Line wraps a single path as a Geometry.
func Line(p Path) Geometry {
	return Geometry{Paths: []Path{p}}
}

// Flatten joins all paths in order. A single-path geometry returns its path unchanged.
func (g Geometry) Flatten() Path {
	if len(g.Paths) == 1 {
		return g.Paths[0]
	}
	n := 0
	for _, p := range g.Paths {
		n += len(p)
	}
	if n == 0 {
		return nil
	}
	out := make(Path, 0, n)
	for _, p := range g.Paths {
		out = append(out, p...)
	}
	return out
}

// NumPoints returns the total number of coordinates across all paths.
func (g Geometry) NumPoints() int {
	n := 0
	for _, p := range g.Paths {
		n += len(p)
	}
	return n
}

// Haversine distance in meters
func Haversine(a, b Coordinate) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(b.Lat - a.Lat)
	dLon := toRad(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadius * c
}

// Bearing returns the initial compass bearing from a to b in degrees [0,360).
func Bearing(a, b Coordinate) float64 {
	y := math.Sin((b.Lon-a.Lon)*math.Pi/180.0) * math.Cos(b.Lat*math.Pi/180.0)
	x := math.Cos(a.Lat*math.Pi/180.0)*math.Sin(b.Lat*math.Pi/180.0) - math.Sin(a.Lat*math.Pi/180.0)*math.Cos(b.Lat*math.Pi/180.0)*math.Cos((b.Lon-a.Lon)*math.Pi/180.0)
	brng := math.Atan2(y, x) * 180.0 / math.Pi
	if brng < 0 {
		brng += 360
	}
	return brng
}

// Length returns the haversine length of the path in meters.
func (p Path) Length() float64 {
	sum := 0.0
	for i := 1; i < len(p); i++ {
		sum += Haversine(p[i-1], p[i])
	}
	return sum
}

// Reversed returns a reversed copy of the path.
func (p Path) Reversed() Path {
	if p == nil {
		return nil
	}
	out := make(Path, len(p))
	for i, c := range p {
		out[len(p)-1-i] = c
	}
	return out
}

// First and Last return the end points of a non-empty path.
func (p Path) First() Coordinate { return p[0] }
func (p Path) Last() Coordinate  { return p[len(p)-1] }

// Reversed returns a copy of g with path order and every path reversed.
func (g Geometry) Reversed() Geometry {
	out := Geometry{Multi: g.Multi, Paths: make([]Path, len(g.Paths))}
	for i, p := range g.Paths {
		out.Paths[len(g.Paths)-1-i] = p.Reversed()
	}
	return out
}
