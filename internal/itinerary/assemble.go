package itinerary

import (
	"campus-shuttle/internal/geo"
)

// AssembleItinerary turns legs into render segments in leg order. Non-loop
// legs yield exactly one segment; loop legs yield one segment per non-empty
// half, both in the leg's color. When extraction gives fewer than two points
// the unmodified geometry is used instead, so no leg is ever dropped.
func AssembleItinerary(legs []Leg, colorOf func(routeName string) string) []RenderSegment {
	if colorOf == nil {
		colorOf = RouteColor
	}
	out := make([]RenderSegment, 0, len(legs))
	for i, leg := range legs {
		color := colorOf(leg.RouteName)
		if color == "" {
			color = FallbackColor
		}
		if leg.IsLoop && (len(leg.First) > 0 || len(leg.Second) > 0) {
			out = append(out, loopSegments(i, leg, color)...)
			continue
		}
		seg := busSegment(i, leg, color, leg.Geometry, leg.FromStop, leg.ToStop)
		out = append(out, seg)
	}
	return out
}

func loopSegments(i int, leg Leg, color string) []RenderSegment {
	var out []RenderSegment
	if len(leg.First) > 0 {
		out = append(out, busSegment(i, leg, color, leg.First, leg.FromStop, leg.First.Last()))
	}
	if len(leg.Second) > 0 {
		out = append(out, busSegment(i, leg, color, leg.Second, leg.Second.First(), leg.ToStop))
	}
	return out
}

func busSegment(i int, leg Leg, color string, geometry geo.Path, from, to geo.Coordinate) RenderSegment {
	seg := RenderSegment{Color: color, Kind: KindBus, RouteName: leg.RouteName, Leg: i}
	seg.Coordinates = geo.ExtractDirectedSegment(geometry, from, to)
	if seg.Drawable() {
		return seg
	}
	seg.Coordinates = geometry
	seg.Fallback = true
	return seg
}
