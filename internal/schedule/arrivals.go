package schedule

import (
	"math"
	"time"

	"campus-shuttle/internal/geo"
	"campus-shuttle/internal/transit"
)

// StopArrival is the estimated arrival at one stop of a trip run.
type StopArrival struct {
	Stop         transit.Stop `json:"stop"`
	ArrivalTime  string       `json:"arrivalTime"` // "H:MM"
	MinutesOfDay int          `json:"minutesOfDay"`
}

// Estimator fills in arrival times for stops without an arrival offset.
type Estimator struct {
	SpeedMps float64
	Dwell    time.Duration
}

// DefaultEstimator assumes ~30 km/h and a 30 s stop at every intermediate stop.
var DefaultEstimator = Estimator{SpeedMps: 8.33, Dwell: 30 * time.Second}

// ComputeStopArrivals uses DefaultEstimator.
func ComputeStopArrivals(trip transit.Trip, stops []transit.Stop, referenceDeparture string) ([]StopArrival, error) {
	return DefaultEstimator.ComputeStopArrivals(trip, stops, referenceDeparture)
}

// ComputeStopArrivals returns one arrival per resolvable stop in
// trip.StopsSequence. Stop ids missing from stops are skipped. A stop with an
// arrival offset arrives referenceDeparture+offset minutes, wrapped to one day.
// Otherwise the arrival is estimated from the previous resolved stop using
// haversine distance, e.SpeedMps and e.Dwell.
func (e Estimator) ComputeStopArrivals(trip transit.Trip, stops []transit.Stop, referenceDeparture string) ([]StopArrival, error) {
	ref, err := ParseClock(referenceDeparture)
	if err != nil {
		return nil, err
	}
	speed := e.SpeedMps
	if speed <= 0 {
		speed = DefaultEstimator.SpeedMps
	}
	byID := make(map[string]transit.Stop, len(stops))
	for _, s := range stops {
		byID[s.ID] = s
	}

	refSec := float64(ref * 60)
	out := make([]StopArrival, 0, len(trip.StopsSequence))
	var prev transit.Stop
	prevSec := refSec
	resolved := 0
	for i, id := range trip.StopsSequence {
		stop, ok := byID[id]
		if !ok {
			continue
		}
		var sec float64
		switch {
		case i < len(trip.ArrivalOffsets):
			sec = refSec + float64(trip.ArrivalOffsets[i]*60)
		case resolved == 0:
			sec = refSec
		default:
			sec = prevSec + geo.Haversine(prev.Coordinate(), stop.Coordinate())/speed
			if resolved > 1 {
				// the previous stop was an intermediate one
				sec += e.Dwell.Seconds()
			}
		}
		minutes := int(math.Round(sec / 60))
		out = append(out, StopArrival{
			Stop:         stop,
			ArrivalTime:  FormatClock(minutes),
			MinutesOfDay: wrap(minutes),
		})
		prev, prevSec = stop, sec
		resolved++
	}
	return out, nil
}
