package staticdata

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"campus-shuttle/internal/schedule"
	"campus-shuttle/internal/transit"
)

// DedupeTimes returns a copy of d where every trip's times keep only the
// first occurrence of each value, and the number of trips changed.
func DedupeTimes(d *transit.StaticData) (*transit.StaticData, int) {
	out := clone(d)
	changed := 0
	for ri := range out.Routes {
		for si := range out.Routes[ri].Services {
			trips := out.Routes[ri].Services[si].Trips
			for ti := range trips {
				seen := make(map[string]bool, len(trips[ti].Times))
				var kept []string
				for _, t := range trips[ti].Times {
					if seen[t] {
						continue
					}
					seen[t] = true
					kept = append(kept, t)
				}
				if len(kept) != len(trips[ti].Times) {
					trips[ti].Times = kept
					changed++
				}
			}
		}
	}
	return out, changed
}

// ApplyBlackouts returns a copy of d where a service running on a day that has
// blackout windows, alongside other days, is split: the blacked-out day moves
// to a new service "<ID>-<DAY>" whose trips drop the times inside that day's
// windows. A service running only on such a day is filtered in place.
func ApplyBlackouts(d *transit.StaticData, blackouts schedule.Blackouts) (*transit.StaticData, int) {
	out := clone(d)
	affected := 0
	for ri := range out.Routes {
		var services []transit.Service
		for _, svc := range out.Routes[ri].Services {
			var days, split []transit.Weekday
			for _, day := range svc.Days {
				if hasWindow(blackouts, day) {
					split = append(split, day)
				} else {
					days = append(days, day)
				}
			}
			if len(split) == 0 {
				services = append(services, svc)
				continue
			}
			if len(days) > 0 {
				kept := svc
				kept.Days = days
				services = append(services, kept)
			}
			for _, day := range split {
				s := svc
				if len(days) > 0 || len(split) > 1 {
					s.ServiceID = fmt.Sprintf("%s-%s", svc.ServiceID, day)
				}
				s.Days = []transit.Weekday{day}
				s.Trips = filterTrips(svc.Trips, day, blackouts)
				services = append(services, s)
				affected++
			}
		}
		out.Routes[ri].Services = services
	}
	return out, affected
}

// MergeBlackoutSplits undoes ApplyBlackouts: every "<ID>-<DAY>" service whose
// parent ID is in the same route gives its day back to the parent and is
// removed. The parent's trips still hold the unfiltered times. Splits without
// a parent and services filtered in place are left alone. It returns the
// number of services merged.
func MergeBlackoutSplits(d *transit.StaticData) (*transit.StaticData, int) {
	out := clone(d)
	merged := 0
	for ri := range out.Routes {
		services := out.Routes[ri].Services
		parents := make(map[string]int, len(services))
		for i, svc := range services {
			parents[svc.ServiceID] = i
		}
		drop := make(map[int]bool)
		for i, svc := range services {
			parent, day, ok := splitServiceID(svc.ServiceID)
			if !ok || len(svc.Days) != 1 || svc.Days[0] != day {
				continue
			}
			pi, ok := parents[parent]
			if !ok {
				continue
			}
			p := &services[pi]
			if !slices.Contains(p.Days, day) {
				p.Days = append(slices.Clone(p.Days), day)
				slices.SortStableFunc(p.Days, func(a, b transit.Weekday) int { return a.Index() - b.Index() })
			}
			drop[i] = true
			merged++
		}
		if len(drop) == 0 {
			continue
		}
		kept := services[:0:0]
		for i, svc := range services {
			if !drop[i] {
				kept = append(kept, svc)
			}
		}
		out.Routes[ri].Services = kept
	}
	return out, merged
}

// splitServiceID parses "<parent>-<day>".
func splitServiceID(id string) (parent string, day transit.Weekday, ok bool) {
	i := strings.LastIndexByte(id, '-')
	if i <= 0 {
		return "", "", false
	}
	day = transit.Weekday(id[i+1:])
	if !day.Valid() {
		return "", "", false
	}
	return id[:i], day, true
}

// ReverseGeometry returns a copy of d with the geometry under key reversed.
func ReverseGeometry(d *transit.StaticData, key string) (*transit.StaticData, error) {
	g, ok := d.RouteGeometries[key]
	if !ok {
		return nil, fmt.Errorf("geometry %q not found", key)
	}
	out := clone(d)
	out.RouteGeometries[key] = g.Reversed()
	return out, nil
}

func hasWindow(b schedule.Blackouts, day transit.Weekday) bool {
	for _, w := range b {
		if w.Day == day {
			return true
		}
	}
	return false
}

func filterTrips(trips []transit.Trip, day transit.Weekday, b schedule.Blackouts) []transit.Trip {
	out := make([]transit.Trip, len(trips))
	for i, t := range trips {
		t.Times = slices.DeleteFunc(slices.Clone(t.Times), func(s string) bool {
			m, err := schedule.ParseClock(s)
			return err == nil && b.Excludes(day, m)
		})
		out[i] = t
	}
	return out
}

// clone copies the route/service/trip tree and the geometry map so callers
// can replace entries without touching d. Stops, locations and the
// coordinate slices themselves are shared since they are never mutated.
func clone(d *transit.StaticData) *transit.StaticData {
	out := *d
	out.Routes = make([]transit.Route, len(d.Routes))
	for ri, r := range d.Routes {
		r.Services = slices.Clone(r.Services)
		for si := range r.Services {
			r.Services[si].Trips = slices.Clone(r.Services[si].Trips)
		}
		out.Routes[ri] = r
	}
	out.RouteGeometries = maps.Clone(d.RouteGeometries)
	return &out
}
