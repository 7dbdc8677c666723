package planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"campus-shuttle/internal/itinerary"
	"campus-shuttle/internal/routing"
	"campus-shuttle/internal/schedule"
	"campus-shuttle/internal/transit"
)

// ItineraryRequest asks for a rendered trip. Requests sharing a non-empty
// Session replace each other: only the latest one returns a result.
type ItineraryRequest struct {
	Session string
	routing.DirectionsRequest
	At time.Time // departure time when DirectionsRequest.Time is empty; zero means now
}

// Itinerary is a planned trip ready for drawing.
type Itinerary struct {
	Directions *routing.Directions        `json:"directions"`
	Segments   []itinerary.RenderSegment `json:"segments"`
	// WalkFailures counts walk steps whose path could not be fetched and were left out.
	WalkFailures int `json:"walkFailures,omitempty"`
}

// Itinerary plans a trip through the directions service and renders its bus
// legs and walking hops.
func (m *Manager) Itinerary(parent context.Context, req ItineraryRequest) (it *Itinerary, err error) {
	start := time.Now()
	defer func() { m.observe("itinerary", start, err) }()

	if m.directions == nil {
		return nil, ErrNoDirections
	}
	snap, err := m.current()
	if err != nil {
		return nil, err
	}
	dreq, err := m.directionsRequest(snap.data, req)
	if err != nil {
		return nil, err
	}

	ctx, gen, done := m.begin(parent, req.Session)
	defer done()

	d, err := m.directions.Directions(ctx, dreq)
	if !m.isCurrent(req.Session, gen) {
		return nil, ErrSuperseded
	}
	if err != nil {
		return nil, fmt.Errorf("plan directions: %w", err)
	}

	legs := itinerary.LegsFromDirections(d, snap.resolveStop)
	segments := itinerary.AssembleItinerary(legs, nil)
	fallbacks := 0
	for _, s := range segments {
		if s.Fallback {
			fallbacks++
		}
	}
	m.metrics.ObserveSegments(string(itinerary.KindBus), len(segments), fallbacks)

	it = &Itinerary{Directions: d, Segments: segments}
	if m.walker != nil {
		if hops := itinerary.WalkHops(d.Steps); len(hops) > 0 {
			walkStart := time.Now()
			results := itinerary.FetchWalks(ctx, m.walker, hops, m.walkConcurrency)
			for _, r := range results {
				if r.Err != nil {
					it.WalkFailures++
					if !errors.Is(r.Err, context.Canceled) {
						log.Warn().Err(r.Err).Int("step", r.Hop.Step).Msg("walking path unavailable")
					}
				}
			}
			walks := itinerary.WalkSegments(results, len(legs))
			m.metrics.ObserveWalks(time.Since(walkStart), it.WalkFailures)
			m.metrics.ObserveSegments(string(itinerary.KindWalk), len(walks), 0)
			it.Segments = append(it.Segments, walks...)
		}
	}
	if !m.isCurrent(req.Session, gen) {
		return nil, ErrSuperseded
	}
	return it, nil
}

// directionsRequest fills the departure time and resolves a campus location
// destination to its coordinates.
func (m *Manager) directionsRequest(d *transit.StaticData, req ItineraryRequest) (routing.DirectionsRequest, error) {
	out := req.DirectionsRequest
	if out.Time == "" {
		now := m.clock(req.At)
		out.Time = schedule.FormatClockPadded(now.Hour()*60 + now.Minute())
		if out.Day == "" {
			out.Day = string(transit.WeekdayOf(now.Weekday()))
		}
	} else if _, err := schedule.ParseClock(out.Time); err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if out.DestLocationID != "" {
		loc, ok := d.Location(out.DestLocationID)
		if !ok {
			return out, fmt.Errorf("%w %q", ErrUnknownLocation, out.DestLocationID)
		}
		if out.DestName == "" {
			out.DestName = loc.Name
		}
		out.DestLat, out.DestLon = loc.Lat, loc.Lon
	}
	return out, nil
}
