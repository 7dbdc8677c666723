package planner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-shuttle/internal/geo"
	"campus-shuttle/internal/itinerary"
	"campus-shuttle/internal/metrics"
	"campus-shuttle/internal/routing"
	"campus-shuttle/internal/schedule"
	"campus-shuttle/internal/transit"
)

// Friday 16 October 2026, 12:30 UTC.
var friday1230 = time.Date(2026, 10, 16, 12, 30, 0, 0, time.UTC)

func testData() *transit.StaticData {
	weekdays := []transit.Weekday{transit.Monday, transit.Tuesday, transit.Wednesday, transit.Thursday, transit.Friday}
	return &transit.StaticData{
		Stops: []transit.Stop{
			{ID: "S1", Name: "Main Gate", Lat: 0, Lon: 0},
			{ID: "S2", Name: "Library", Lat: 0, Lon: 0.01},
			{ID: "S3", Name: "Hostel", Lat: 0, Lon: 0.02},
		},
		Routes: []transit.Route{{
			Name: "Route A",
			Services: []transit.Service{{
				ServiceID: "WEEKDAY",
				Days:      weekdays,
				Trips: []transit.Trip{{
					Headsign:      "To Hostel",
					StopsSequence: []string{"S1", "S2", "S3"},
					Times:         []string{"08:00", "12:45", "14:00"},
				}},
			}},
		}},
		Locations: []transit.Location{{ID: "lib", Name: "Library", Lat: 0, Lon: 0.01}},
		RouteGeometries: map[string]geo.Geometry{
			"Route A : To Hostel": geo.Line(geo.Path{
				{Lon: -0.005}, {Lon: 0}, {Lon: 0.005}, {Lon: 0.01}, {Lon: 0.015}, {Lon: 0.02}, {Lon: 0.025},
			}),
		},
	}
}

type staticProvider struct {
	data *transit.StaticData
	err  error
}

func (p staticProvider) Load(context.Context) (*transit.StaticData, error) { return p.data, p.err }

type directionsFunc func(ctx context.Context, req routing.DirectionsRequest) (*routing.Directions, error)

func (f directionsFunc) Directions(ctx context.Context, req routing.DirectionsRequest) (*routing.Directions, error) {
	return f(ctx, req)
}

type walkFunc func(ctx context.Context, from, to geo.Coordinate) (geo.Path, error)

func (f walkFunc) Walk(ctx context.Context, from, to geo.Coordinate) (geo.Path, error) {
	return f(ctx, from, to)
}

func newTestManager(t *testing.T, opts Options) *Manager {
	t.Helper()
	if opts.Provider == nil {
		opts.Provider = staticProvider{data: testData()}
	}
	opts.Location = time.UTC
	opts.Now = func() time.Time { return friday1230 }
	if opts.Blackouts == nil {
		opts.Blackouts = schedule.DefaultBlackouts
	}
	m := NewManager(opts)
	require.NoError(t, m.Refresh(context.Background()))
	return m
}

func TestManager_NoStaticData(t *testing.T) {
	m := NewManager(Options{Provider: staticProvider{err: errors.New("db down")}})
	assert.Error(t, m.Refresh(context.Background()))

	_, err := m.Static()
	assert.ErrorIs(t, err, ErrNoStaticData)
	_, err = m.NextDeparture("Route A", "To Hostel", friday1230, 0)
	assert.ErrorIs(t, err, ErrNoStaticData)
	_, _, err = m.NearestStop(geo.Coordinate{})
	assert.ErrorIs(t, err, ErrNoStaticData)
	assert.True(t, m.LoadedAt().IsZero())
}

func TestManager_NextDeparture(t *testing.T) {
	m := newTestManager(t, Options{Metrics: metrics.NewCollector(0, 0)})

	info, err := m.NextDeparture("Route A", "To Hostel", time.Time{}, 5)
	require.NoError(t, err)
	require.NotNil(t, info)
	// 12:45 falls in the Friday 12:40-14:00 blackout.
	assert.Equal(t, "14:00", info.Next.Time)
	assert.Equal(t, transit.Friday, info.Next.Day)
	assert.Equal(t, "WEEKDAY", info.ServiceID)
	require.Len(t, info.Upcoming, 1)
	assert.Equal(t, "14:00", info.Upcoming[0].Time)

	info, err = m.NextDeparture("Route A", "To Hostel", friday1230.Add(2*time.Hour), 0)
	require.NoError(t, err)
	assert.Equal(t, "08:00", info.Next.Time)
	assert.Equal(t, transit.Monday, info.Next.Day)
	assert.Equal(t, 3, info.Next.DaysAhead)

	_, err = m.NextDeparture("Route Z", "Nowhere", time.Time{}, 0)
	assert.ErrorIs(t, err, ErrUnknownTrip)
}

func TestManager_NextDeparture_None(t *testing.T) {
	d := testData()
	d.Routes[0].Services[0].Days = nil
	m := newTestManager(t, Options{Provider: staticProvider{data: d}})
	info, err := m.NextDeparture("Route A", "To Hostel", time.Time{}, 0)
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestManager_Arrivals(t *testing.T) {
	m := newTestManager(t, Options{})

	arr, err := m.Arrivals("Route A", "To Hostel", "08:00", time.Time{})
	require.NoError(t, err)
	require.Len(t, arr, 3)
	assert.Equal(t, "8:00", arr[0].ArrivalTime)
	assert.Equal(t, "S3", arr[2].Stop.ID)
	assert.Less(t, arr[0].MinutesOfDay, arr[1].MinutesOfDay)
	assert.Less(t, arr[1].MinutesOfDay, arr[2].MinutesOfDay)

	arr, err = m.Arrivals("Route A", "To Hostel", "", time.Time{})
	require.NoError(t, err)
	require.NotEmpty(t, arr)
	assert.Equal(t, "14:00", arr[0].ArrivalTime)

	_, err = m.Arrivals("Route A", "To Hostel", "25:00", time.Time{})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestManager_NearestStop(t *testing.T) {
	m := newTestManager(t, Options{})
	stop, dist, err := m.NearestStop(geo.Coordinate{Lat: 0.0001, Lon: 0.0098})
	require.NoError(t, err)
	assert.Equal(t, "S2", stop.ID)
	assert.Less(t, dist, 50.0)

	within, err := m.StopsWithin(geo.Coordinate{Lat: 0, Lon: 0.005}, 600)
	require.NoError(t, err)
	assert.Len(t, within, 2)
}

func routeADirections() *routing.Directions {
	line := geo.Line(geo.Path{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 0.005}, {Lat: 0, Lon: 0.01}, {Lat: 0, Lon: 0.015}, {Lat: 0, Lon: 0.02}})
	origin := geo.Coordinate{Lat: 0.001, Lon: -0.001}
	gate := geo.Coordinate{Lat: 0, Lon: 0}
	return &routing.Directions{
		RouteName:     "Route A",
		RouteGeometry: &line,
		OriginStop:    &routing.StopRef{ID: "S1", Lat: 0, Lon: 0},
		DestStop:      &routing.StopRef{ID: "S2", Lat: 0, Lon: 0.01},
		Steps: []routing.Step{
			{Type: routing.StepWalk, From: &origin, To: &gate},
			{Type: routing.StepBoard, RouteName: "Route A"},
			{Type: routing.StepAlight},
		},
	}
}

func TestManager_Itinerary(t *testing.T) {
	var got routing.DirectionsRequest
	m := newTestManager(t, Options{
		Directions: directionsFunc(func(ctx context.Context, req routing.DirectionsRequest) (*routing.Directions, error) {
			got = req
			return routeADirections(), nil
		}),
		Walker: walkFunc(func(ctx context.Context, from, to geo.Coordinate) (geo.Path, error) {
			return geo.Path{from, to}, nil
		}),
		WalkConcurrency: 2,
	})

	it, err := m.Itinerary(context.Background(), ItineraryRequest{
		DirectionsRequest: routing.DirectionsRequest{OriginLat: 0.001, OriginLon: -0.001, DestLocationID: "lib"},
	})
	require.NoError(t, err)
	assert.Equal(t, "12:30", got.Time)
	assert.Equal(t, "friday", got.Day)
	assert.Equal(t, "Library", got.DestName)
	assert.Equal(t, 0.01, got.DestLon)

	require.Len(t, it.Segments, 2)
	bus := it.Segments[0]
	assert.Equal(t, itinerary.KindBus, bus.Kind)
	assert.Equal(t, itinerary.RouteColor("Route A"), bus.Color)
	assert.False(t, bus.Fallback)
	assert.Equal(t, geo.Coordinate{Lat: 0, Lon: 0}, bus.Coordinates.First())
	assert.Equal(t, geo.Coordinate{Lat: 0, Lon: 0.01}, bus.Coordinates.Last())

	walk := it.Segments[1]
	assert.Equal(t, itinerary.KindWalk, walk.Kind)
	assert.Equal(t, itinerary.WalkColor, walk.Color)
	assert.Zero(t, it.WalkFailures)
}

func TestManager_Itinerary_WalkFailureKeepsBus(t *testing.T) {
	m := newTestManager(t, Options{
		Directions: directionsFunc(func(context.Context, routing.DirectionsRequest) (*routing.Directions, error) {
			return routeADirections(), nil
		}),
		Walker: walkFunc(func(context.Context, geo.Coordinate, geo.Coordinate) (geo.Path, error) {
			return nil, routing.ErrNoRoute
		}),
	})
	it, err := m.Itinerary(context.Background(), ItineraryRequest{DirectionsRequest: routing.DirectionsRequest{Time: "09:00"}})
	require.NoError(t, err)
	require.Len(t, it.Segments, 1)
	assert.Equal(t, itinerary.KindBus, it.Segments[0].Kind)
	assert.Equal(t, 1, it.WalkFailures)
}

func TestManager_Itinerary_Errors(t *testing.T) {
	m := newTestManager(t, Options{})
	_, err := m.Itinerary(context.Background(), ItineraryRequest{})
	assert.ErrorIs(t, err, ErrNoDirections)

	m = newTestManager(t, Options{
		Directions: directionsFunc(func(context.Context, routing.DirectionsRequest) (*routing.Directions, error) {
			return nil, &routing.DirectionsError{Message: "No route found", Suggestion: "walk"}
		}),
	})
	_, err = m.Itinerary(context.Background(), ItineraryRequest{})
	var de *routing.DirectionsError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "walk", de.Suggestion)

	_, err = m.Itinerary(context.Background(), ItineraryRequest{DirectionsRequest: routing.DirectionsRequest{DestLocationID: "nope"}})
	assert.ErrorIs(t, err, ErrUnknownLocation)
	_, err = m.Itinerary(context.Background(), ItineraryRequest{DirectionsRequest: routing.DirectionsRequest{Time: "9am"}})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestManager_Itinerary_LatestWins(t *testing.T) {
	started := make(chan struct{})
	var once sync.Once
	m := newTestManager(t, Options{
		Metrics: metrics.NewCollector(0, 0),
		Directions: directionsFunc(func(ctx context.Context, req routing.DirectionsRequest) (*routing.Directions, error) {
			if req.Time == "08:00" {
				once.Do(func() { close(started) })
				<-ctx.Done()
				return nil, ctx.Err()
			}
			return routeADirections(), nil
		}),
	})

	firstErr := make(chan error, 1)
	go func() {
		_, err := m.Itinerary(context.Background(), ItineraryRequest{Session: "s1", DirectionsRequest: routing.DirectionsRequest{Time: "08:00"}})
		firstErr <- err
	}()
	<-started

	it, err := m.Itinerary(context.Background(), ItineraryRequest{Session: "s1", DirectionsRequest: routing.DirectionsRequest{Time: "09:00"}})
	require.NoError(t, err)
	assert.NotEmpty(t, it.Segments)

	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, ErrSuperseded)
	case <-time.After(2 * time.Second):
		t.Fatal("superseded request did not return")
	}

	// Other sessions are independent.
	_, err = m.Itinerary(context.Background(), ItineraryRequest{Session: "s2", DirectionsRequest: routing.DirectionsRequest{Time: "09:00"}})
	assert.NoError(t, err)
}

func TestManager_StartRefresher(t *testing.T) {
	loads := make(chan struct{}, 8)
	p := &signalProvider{data: testData(), loaded: loads}
	m := NewManager(Options{Provider: p, RefreshInterval: 10 * time.Millisecond})
	m.StartRefresher(context.Background())
	defer m.Stop()

	select {
	case <-loads:
	case <-time.After(2 * time.Second):
		t.Fatal("refresher never loaded static data")
	}
	assert.Eventually(t, func() bool { return !m.LoadedAt().IsZero() }, 2*time.Second, 5*time.Millisecond)
}

type signalProvider struct {
	data   *transit.StaticData
	loaded chan struct{}
}

func (p *signalProvider) Load(context.Context) (*transit.StaticData, error) {
	select {
	case p.loaded <- struct{}{}:
	default:
	}
	return p.data, nil
}
