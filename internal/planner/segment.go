package planner

import (
	"fmt"
	"time"

	"campus-shuttle/internal/geo"
	"campus-shuttle/internal/itinerary"
	"campus-shuttle/internal/transit"
)

// RouteSegment is the stored route geometry clipped to one ride between two stops.
type RouteSegment struct {
	Route    string                  `json:"route"`
	Headsign string                  `json:"headsign"`
	From     transit.Stop            `json:"from"`
	To       transit.Stop            `json:"to"`
	Segment  itinerary.RenderSegment `json:"segment"`
	// DistanceMeters is the length of the drawn path.
	DistanceMeters float64 `json:"distanceMeters"`
	// Heading is the initial bearing in degrees, for placing the direction arrow.
	Heading  float64 `json:"heading"`
	Polyline string  `json:"polyline"`
}

// RouteSegment draws the ride from fromStopID to toStopID on the geometry
// stored for route/headsign. When the stops cannot be projected onto the
// geometry the whole geometry is returned with Segment.Fallback set.
func (m *Manager) RouteSegment(route, headsign, fromStopID, toStopID string) (rs *RouteSegment, err error) {
	start := time.Now()
	defer func() { m.observe("route_segment", start, err) }()

	snap, err := m.current()
	if err != nil {
		return nil, err
	}
	g, ok := snap.data.RouteGeometries[transit.GeometryKey(route, headsign)]
	if !ok || g.NumPoints() == 0 {
		return nil, fmt.Errorf("%w: no geometry for %s", ErrUnknownTrip, transit.GeometryKey(route, headsign))
	}
	from, ok := snap.stops[fromStopID]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownStop, fromStopID)
	}
	to, ok := snap.stops[toStopID]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownStop, toStopID)
	}

	leg := itinerary.Leg{RouteName: route, Geometry: g.Flatten(), FromStop: from.Coordinate(), ToStop: to.Coordinate()}
	seg := itinerary.AssembleItinerary([]itinerary.Leg{leg}, nil)[0]
	fallbacks := 0
	if seg.Fallback {
		fallbacks = 1
	}
	m.metrics.ObserveSegments(string(itinerary.KindBus), 1, fallbacks)

	rs = &RouteSegment{
		Route:          route,
		Headsign:       headsign,
		From:           from,
		To:             to,
		Segment:        seg,
		DistanceMeters: seg.Coordinates.Length(),
		Polyline:       geo.EncodePath(seg.Coordinates),
	}
	if seg.Drawable() {
		rs.Heading = geo.Bearing(seg.Coordinates[0], seg.Coordinates[1])
	}
	return rs, nil
}
