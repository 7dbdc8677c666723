package itinerary

import (
	"campus-shuttle/internal/geo"
	"campus-shuttle/internal/routing"
)

// StopResolver looks up a stop coordinate by id.
type StopResolver func(id string) (geo.Coordinate, bool)

// LegsFromDirections converts the bus part of a directions result into legs.
// Walk-only results and results without geometry yield no legs.
func LegsFromDirections(d *routing.Directions, resolve StopResolver) []Leg {
	if d == nil || d.WalkOnly() {
		return nil
	}
	switch {
	case len(d.Legs) > 0:
		legs := make([]Leg, 0, len(d.Legs))
		for _, lg := range d.Legs {
			legs = append(legs, legFromGeometry(lg, d.RouteName))
		}
		return legs
	case d.RouteGeometries != nil:
		return twoPartLegs(d, resolve)
	case d.RouteGeometry != nil:
		return []Leg{singleLeg(d)}
	}
	return nil
}

func singleLeg(d *routing.Directions) Leg {
	leg := Leg{
		RouteName: d.RouteName,
		Geometry:  d.RouteGeometry.Flatten(),
		FromStop:  stopCoord(d.OriginStop),
		ToStop:    stopCoord(d.DestStop),
	}
	if d.IsLoopRoute && d.LoopInfo != nil && d.LoopInfo.TransferPoint != nil && len(leg.Geometry) > 0 {
		leg.IsLoop = true
		leg.First, leg.Second = geo.SplitLoop(leg.Geometry, *d.LoopInfo.TransferPoint)
	}
	return leg
}

// twoPartLegs handles routeGeometries.firstLeg/secondLeg. On a loop route the
// two parts are halves of one leg; otherwise they are two legs joined at the
// transfer point.
func twoPartLegs(d *routing.Directions, resolve StopResolver) []Leg {
	first, second := d.RouteGeometries.FirstLeg, d.RouteGeometries.SecondLeg

	transfer, haveTransfer := transferPoint(d, resolve)

	if d.IsLoopRoute {
		leg := Leg{
			RouteName: firstNonEmpty(routeName(first), routeName(second), d.RouteName),
			FromStop:  stopCoord(d.OriginStop),
			ToStop:    stopCoord(d.DestStop),
			IsLoop:    true,
			First:     partPath(first),
			Second:    partPath(second),
		}
		if first != nil && first.FromStop != nil && d.OriginStop == nil {
			leg.FromStop = first.FromStop.Coordinate()
		}
		if second != nil && second.ToStop != nil && d.DestStop == nil {
			leg.ToStop = second.ToStop.Coordinate()
		}
		leg.Geometry = joinHalves(leg.First, leg.Second)
		return []Leg{leg}
	}

	// Unknown ends fall back to the part's own first or last point.
	var legs []Leg
	if first != nil {
		leg := legFromGeometry(*first, d.RouteName)
		if first.FromStop == nil {
			leg.FromStop = endOr(d.OriginStop, leg.Geometry, false)
		}
		if first.ToStop == nil {
			if haveTransfer {
				leg.ToStop = transfer
			} else {
				leg.ToStop = endOr(nil, leg.Geometry, true)
			}
		}
		legs = append(legs, leg)
	}
	if second != nil {
		leg := legFromGeometry(*second, d.RouteName)
		if second.FromStop == nil {
			if haveTransfer {
				leg.FromStop = transfer
			} else {
				leg.FromStop = endOr(nil, leg.Geometry, false)
			}
		}
		if second.ToStop == nil {
			leg.ToStop = endOr(d.DestStop, leg.Geometry, true)
		}
		legs = append(legs, leg)
	}
	return legs
}

// endOr returns the coordinate of s, or else the first (last when atEnd)
// point of p.
func endOr(s *routing.StopRef, p geo.Path, atEnd bool) geo.Coordinate {
	switch {
	case s != nil:
		return s.Coordinate()
	case len(p) == 0:
		return geo.Coordinate{}
	case atEnd:
		return p.Last()
	}
	return p.First()
}

func legFromGeometry(lg routing.LegGeometry, defaultRoute string) Leg {
	leg := Leg{
		RouteName: firstNonEmpty(lg.RouteName, defaultRoute),
		Geometry:  geometryPath(lg.Geometry),
		FromStop:  stopCoord(lg.FromStop),
		ToStop:    stopCoord(lg.ToStop),
		IsLoop:    lg.IsLoop,
		First:     geometryPath(lg.First),
		Second:    geometryPath(lg.Second),
	}
	if leg.IsLoop && len(leg.Geometry) == 0 {
		leg.Geometry = joinHalves(leg.First, leg.Second)
	}
	return leg
}

func transferPoint(d *routing.Directions, resolve StopResolver) (geo.Coordinate, bool) {
	if d.LoopInfo != nil && d.LoopInfo.TransferPoint != nil {
		return *d.LoopInfo.TransferPoint, true
	}
	if d.TransferPointID != "" && resolve != nil {
		return resolve(d.TransferPointID)
	}
	return geo.Coordinate{}, false
}

// joinHalves concatenates loop halves, dropping the duplicated splice point.
func joinHalves(first, second geo.Path) geo.Path {
	out := make(geo.Path, 0, len(first)+len(second))
	out = append(out, first...)
	if len(first) > 0 && len(second) > 0 && first.Last() == second.First() {
		second = second[1:]
	}
	return append(out, second...)
}

func partPath(lg *routing.LegGeometry) geo.Path {
	if lg == nil {
		return nil
	}
	return geometryPath(lg.Geometry)
}

func routeName(lg *routing.LegGeometry) string {
	if lg == nil {
		return ""
	}
	return lg.RouteName
}

func geometryPath(g *geo.Geometry) geo.Path {
	if g == nil {
		return nil
	}
	return g.Flatten()
}

func stopCoord(s *routing.StopRef) geo.Coordinate {
	if s == nil {
		return geo.Coordinate{}
	}
	return s.Coordinate()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
