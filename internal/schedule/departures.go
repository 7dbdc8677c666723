package schedule

import (
	"slices"

	"campus-shuttle/internal/transit"
)

// Departure is the next run of a trip.
type Departure struct {
	Time         string          `json:"time"` // "HH:MM"
	Day          transit.Weekday `json:"day"`
	DaysAhead    int             `json:"daysAhead"`
	MinutesOfDay int             `json:"minutesOfDay"`
}

// before orders departures by how soon they leave.
func (d Departure) before(o Departure) bool {
	if d.DaysAhead != o.DaysAhead {
		return d.DaysAhead < o.DaysAhead
	}
	return d.MinutesOfDay < o.MinutesOfDay
}

// NextDeparture finds the earliest run of trip at or after now. Today only
// times >= now.MinutesOfDay count; after that the earliest time of the next
// day the service runs, looking up to seven days ahead. Times inside a
// blackout window for their day are skipped, as are unparsable times.
func NextDeparture(trip transit.Trip, service transit.Service, now Moment, blackouts Blackouts) (Departure, bool) {
	if len(trip.Times) == 0 || !now.Day.Valid() {
		return Departure{}, false
	}
	for ahead := 0; ahead <= 7; ahead++ {
		day := now.Day.Add(ahead)
		if !service.RunsOn(day) {
			continue
		}
		best := -1
		for _, s := range trip.Times {
			m, err := ParseClock(s)
			if err != nil {
				continue
			}
			if ahead == 0 && m < now.MinutesOfDay {
				continue
			}
			if blackouts.Excludes(day, m) {
				continue
			}
			if best < 0 || m < best {
				best = m
			}
		}
		if best >= 0 {
			return Departure{Time: FormatClockPadded(best), Day: day, DaysAhead: ahead, MinutesOfDay: best}, true
		}
	}
	return Departure{}, false
}

// FindNextDeparture returns only the "HH:MM" time of NextDeparture.
func FindNextDeparture(trip transit.Trip, service transit.Service, now Moment, blackouts Blackouts) (string, bool) {
	d, ok := NextDeparture(trip, service, now, blackouts)
	if !ok {
		return "", false
	}
	return d.Time, true
}

// EarliestDeparture is NextDeparture across several services running the same trip.
func EarliestDeparture(refs []transit.TripRef, now Moment, blackouts Blackouts) (transit.TripRef, Departure, bool) {
	var (
		bestRef transit.TripRef
		best    Departure
		found   bool
	)
	for _, ref := range refs {
		d, ok := NextDeparture(ref.Trip, ref.Service, now, blackouts)
		if !ok {
			continue
		}
		if !found || d.before(best) {
			bestRef, best, found = ref, d, true
		}
	}
	return bestRef, best, found
}

// UpcomingDepartures lists today's remaining non-excluded runs in time order, at most limit (0 = all).
func UpcomingDepartures(trip transit.Trip, service transit.Service, now Moment, blackouts Blackouts, limit int) []Departure {
	if !service.RunsOn(now.Day) {
		return nil
	}
	var out []Departure
	for _, s := range trip.Times {
		m, err := ParseClock(s)
		if err != nil || m < now.MinutesOfDay || blackouts.Excludes(now.Day, m) {
			continue
		}
		out = append(out, Departure{Time: FormatClockPadded(m), Day: now.Day, MinutesOfDay: m})
	}
	slices.SortFunc(out, func(a, b Departure) int { return a.MinutesOfDay - b.MinutesOfDay })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
