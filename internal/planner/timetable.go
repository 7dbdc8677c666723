package planner

import (
	"fmt"
	"time"

	"campus-shuttle/internal/schedule"
	"campus-shuttle/internal/transit"
)

// DepartureInfo is the next run of a route/headsign pair.
type DepartureInfo struct {
	Route     string             `json:"route"`
	Headsign  string             `json:"headsign"`
	ServiceID string             `json:"serviceId"`
	Next      schedule.Departure `json:"next"`
	// Upcoming lists the service's remaining runs on the departure day, next included.
	Upcoming []schedule.Departure `json:"upcoming,omitempty"`
}

// NextDeparture finds the earliest run of route/headsign at or after at
// (now when zero) across every service that runs the trip. A nil result
// with a nil error means no run exists within a week.
func (m *Manager) NextDeparture(route, headsign string, at time.Time, upcoming int) (info *DepartureInfo, err error) {
	start := time.Now()
	defer func() { m.observe("next_departure", start, err) }()

	snap, err := m.current()
	if err != nil {
		return nil, err
	}
	refs := snap.data.FindTrips(route, headsign)
	if len(refs) == 0 {
		return nil, fmt.Errorf("%w: %s : %s", ErrUnknownTrip, route, headsign)
	}
	now := schedule.MomentFromTime(m.clock(at))
	ref, dep, ok := schedule.EarliestDeparture(refs, now, m.blackouts)
	if !ok {
		return nil, nil
	}
	info = &DepartureInfo{Route: ref.Route, Headsign: ref.Trip.Headsign, ServiceID: ref.Service.ServiceID, Next: dep}
	if upcoming > 0 {
		from := now
		if dep.DaysAhead > 0 {
			from = schedule.Moment{Day: dep.Day}
		}
		info.Upcoming = schedule.UpcomingDepartures(ref.Trip, ref.Service, from, m.blackouts, upcoming)
	}
	return info, nil
}

// Arrivals estimates the arrival at every stop of route/headsign for the run
// leaving at departure ("HH:MM"). An empty departure uses the next run after
// at; when no run exists the result is empty.
func (m *Manager) Arrivals(route, headsign, departure string, at time.Time) (arrivals []schedule.StopArrival, err error) {
	start := time.Now()
	defer func() { m.observe("arrivals", start, err) }()

	snap, err := m.current()
	if err != nil {
		return nil, err
	}
	refs := snap.data.FindTrips(route, headsign)
	if len(refs) == 0 {
		return nil, fmt.Errorf("%w: %s : %s", ErrUnknownTrip, route, headsign)
	}
	ref := refs[0]
	if departure == "" {
		var (
			dep schedule.Departure
			ok  bool
		)
		ref, dep, ok = schedule.EarliestDeparture(refs, schedule.MomentFromTime(m.clock(at)), m.blackouts)
		if !ok {
			return nil, nil
		}
		departure = dep.Time
	} else {
		if _, err := schedule.ParseClock(departure); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		ref = tripRunningAt(refs, departure)
	}
	return m.estimator.ComputeStopArrivals(ref.Trip, snap.data.Stops, departure)
}

// tripRunningAt prefers the service whose timetable lists departure, so its
// arrival offsets apply.
func tripRunningAt(refs []transit.TripRef, departure string) transit.TripRef {
	want, err := schedule.ParseClock(departure)
	if err != nil {
		return refs[0]
	}
	for _, ref := range refs {
		for _, t := range ref.Trip.Times {
			if m, err := schedule.ParseClock(t); err == nil && m == want {
				return ref
			}
		}
	}
	return refs[0]
}
