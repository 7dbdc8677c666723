package staticdata

import (
	"fmt"
	"sort"

	"campus-shuttle/internal/schedule"
	"campus-shuttle/internal/transit"
)

// Issue is one structural problem found in static data.
type Issue struct {
	Route    string `json:"route,omitempty"`
	Service  string `json:"service,omitempty"`
	Headsign string `json:"headsign,omitempty"`
	Message  string `json:"message"`
}

func (i Issue) String() string {
	switch {
	case i.Route == "":
		return i.Message
	case i.Headsign == "":
		return fmt.Sprintf("Route '%s': %s", i.Route, i.Message)
	default:
		return fmt.Sprintf("Route '%s' Trip '%s': %s", i.Route, i.Headsign, i.Message)
	}
}

// Validate checks static data for duplicate stops, dangling stop references,
// malformed or unsorted times, offset/sequence length mismatches, unknown
// weekday names and geometries too short to segment.
func Validate(d *transit.StaticData) []Issue {
	var issues []Issue
	add := func(route, service, headsign, format string, args ...any) {
		issues = append(issues, Issue{Route: route, Service: service, Headsign: headsign, Message: fmt.Sprintf(format, args...)})
	}

	stops := make(map[string]bool, len(d.Stops))
	for _, s := range d.Stops {
		if stops[s.ID] {
			add("", "", "", "Duplicate stop ID definition: %s", s.ID)
		}
		stops[s.ID] = true
	}

	for _, r := range d.Routes {
		for _, svc := range r.Services {
			for _, day := range svc.Days {
				if !day.Valid() {
					add(r.Name, svc.ServiceID, "", "Service '%s' has unknown day %q.", svc.ServiceID, day)
				}
			}
			for _, trip := range svc.Trips {
				for _, id := range trip.StopsSequence {
					if !stops[id] {
						add(r.Name, svc.ServiceID, trip.Headsign, "Stop ID '%s' not found in stops list.", id)
					}
				}
				if trip.HasOffsets() && len(trip.ArrivalOffsets) != len(trip.StopsSequence) {
					add(r.Name, svc.ServiceID, trip.Headsign, "arrival_offsets has %d entries for %d stops.", len(trip.ArrivalOffsets), len(trip.StopsSequence))
				}
				valid := true
				for _, t := range trip.Times {
					if _, err := schedule.ParseClock(t); err != nil || len(t) != 5 {
						add(r.Name, svc.ServiceID, trip.Headsign, "Invalid time format '%s'.", t)
						valid = false
					}
				}
				if valid && !sort.StringsAreSorted(trip.Times) {
					add(r.Name, svc.ServiceID, trip.Headsign, "Times are not sorted chronologically.")
				}
			}
		}
	}

	keys := make([]string, 0, len(d.RouteGeometries))
	for k := range d.RouteGeometries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if d.RouteGeometries[k].NumPoints() < 2 {
			add("", "", "", "Geometry '%s' has fewer than 2 points.", k)
		}
	}
	return issues
}
