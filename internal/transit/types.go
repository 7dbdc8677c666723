package transit

import (
	"fmt"
	"strings"
	"time"

	"campus-shuttle/internal/geo"
)

type Weekday string

const (
	Sunday    Weekday = "sunday"
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
)

// Week lists the weekdays in time.Weekday order (Sunday first).
var Week = [7]Weekday{Sunday, Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

func WeekdayOf(d time.Weekday) Weekday { return Week[d] }

// Index returns the position in Week, or -1 for an unknown name.
func (w Weekday) Index() int {
	for i, d := range Week {
		if d == w {
			return i
		}
	}
	return -1
}

func (w Weekday) Valid() bool { return w.Index() >= 0 }

// Add returns the weekday n days after w.
func (w Weekday) Add(n int) Weekday {
	i := w.Index()
	if i < 0 {
		return w
	}
	return Week[((i+n)%7+7)%7]
}

func ParseWeekday(s string) (Weekday, error) {
	w := Weekday(strings.ToLower(strings.TrimSpace(s)))
	if !w.Valid() {
		return "", fmt.Errorf("invalid weekday %q", s)
	}
	return w, nil
}

type Stop struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

func (s Stop) Coordinate() geo.Coordinate { return geo.Coordinate{Lat: s.Lat, Lon: s.Lon} }

type Trip struct {
	Headsign       string   `json:"headsign"`
	StopsSequence  []string `json:"stops_sequence"`
	Times          []string `json:"times"`           // "HH:MM", one per run of the trip
	ArrivalOffsets []int    `json:"arrival_offsets"` // minutes after departure per stop; nil when absent
}

// HasOffsets reports whether per-stop arrival offsets are present.
func (t Trip) HasOffsets() bool { return len(t.ArrivalOffsets) > 0 }

type Service struct {
	ServiceID string    `json:"service_id"`
	Days      []Weekday `json:"days"`
	Trips     []Trip    `json:"trips"`
}

// RunsOn reports whether the service operates on day.
func (s Service) RunsOn(day Weekday) bool {
	for _, d := range s.Days {
		if d == day {
			return true
		}
	}
	return false
}

type Route struct {
	Name     string    `json:"name"`
	Services []Service `json:"services"`
}

// Location is a named campus place usable as a directions destination.
type Location struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Category string   `json:"category,omitempty"`
	Lat      float64  `json:"lat"`
	Lon      float64  `json:"lon"`
	Keywords []string `json:"keywords,omitempty"`
}

type StaticData struct {
	Stops           []Stop                  `json:"stops"`
	Routes          []Route                 `json:"routes"`
	Locations       []Location              `json:"locations"`
	RouteGeometries map[string]geo.Geometry `json:"route_geometries"`
}

// GeometryKey builds the "RouteName : Headsign" key used for route geometries.
func GeometryKey(routeName, headsign string) string {
	return routeName + " : " + headsign
}

// StopsByID indexes stops by id. Later duplicates win.
func (d *StaticData) StopsByID() map[string]Stop {
	m := make(map[string]Stop, len(d.Stops))
	for _, s := range d.Stops {
		m[s.ID] = s
	}
	return m
}

func (d *StaticData) Route(name string) (Route, bool) {
	for _, r := range d.Routes {
		if r.Name == name {
			return r, true
		}
	}
	return Route{}, false
}

func (d *StaticData) Location(id string) (Location, bool) {
	for _, l := range d.Locations {
		if l.ID == id {
			return l, true
		}
	}
	return Location{}, false
}

// TripRef identifies a trip together with the service that runs it.
type TripRef struct {
	Route   string
	Service Service
	Trip    Trip
}

// FindTrips returns every trip on route with the given headsign, one per service.
func (d *StaticData) FindTrips(routeName, headsign string) []TripRef {
	r, ok := d.Route(routeName)
	if !ok {
		return nil
	}
	var refs []TripRef
	for _, svc := range r.Services {
		for _, t := range svc.Trips {
			if t.Headsign == headsign {
				refs = append(refs, TripRef{Route: r.Name, Service: svc, Trip: t})
			}
		}
	}
	return refs
}
