package transit

import (
	"math"

	"github.com/tidwall/rtree"

	"campus-shuttle/internal/geo"
)

// StopIndex answers nearest-stop queries over a fixed stop universe.
type StopIndex struct {
	tree rtree.RTreeG[Stop]
	n    int
}

func NewStopIndex(stops []Stop) *StopIndex {
	idx := &StopIndex{}
	for _, s := range stops {
		pt := [2]float64{s.Lon, s.Lat}
		idx.tree.Insert(pt, pt, s)
		idx.n++
	}
	return idx
}

func (idx *StopIndex) Len() int { return idx.n }

// Nearest returns the stop closest to c by haversine distance, searching
// bounding boxes of growing size. ok is false for an empty index.
func (idx *StopIndex) Nearest(c geo.Coordinate) (stop Stop, dist float64, ok bool) {
	if idx.n == 0 {
		return Stop{}, 0, false
	}
	// ~1.1 km at the equator, doubled until the best hit lies inside the
	// box's inscribed circle; a corner hit may lose to a stop just outside an edge.
	for span := 0.01; ; span *= 2 {
		best, bestDist, found := idx.searchBox(c, span)
		if found && (bestDist <= boxInnerRadius(c, span) || span >= 360) {
			return best, bestDist, true
		}
		if span >= 360 {
			return Stop{}, 0, false
		}
	}
}

// Within returns stops no farther than radius meters from c.
func (idx *StopIndex) Within(c geo.Coordinate, radius float64) []Stop {
	dLat := radius / geo.EarthRadius * 180 / math.Pi
	dLon := dLat / math.Max(math.Cos(c.Lat*math.Pi/180), 1e-6)
	var out []Stop
	idx.tree.Search([2]float64{c.Lon - dLon, c.Lat - dLat}, [2]float64{c.Lon + dLon, c.Lat + dLat},
		func(_, _ [2]float64, s Stop) bool {
			if geo.Haversine(c, s.Coordinate()) <= radius {
				out = append(out, s)
			}
			return true
		})
	return out
}

func (idx *StopIndex) searchBox(c geo.Coordinate, span float64) (Stop, float64, bool) {
	var best Stop
	bestDist := math.MaxFloat64
	found := false
	idx.tree.Search([2]float64{c.Lon - span, c.Lat - span}, [2]float64{c.Lon + span, c.Lat + span},
		func(_, _ [2]float64, s Stop) bool {
			d := geo.Haversine(c, s.Coordinate())
			if d < bestDist {
				best, bestDist, found = s, d, true
			}
			return true
		})
	return best, bestDist, found
}

// boxInnerRadius is the smallest distance from c to the edge of a box of half-width span degrees.
func boxInnerRadius(c geo.Coordinate, span float64) float64 {
	north := geo.Haversine(c, geo.Coordinate{Lat: c.Lat + span, Lon: c.Lon})
	east := geo.Haversine(c, geo.Coordinate{Lat: c.Lat, Lon: c.Lon + span})
	return math.Min(north, east)
}
