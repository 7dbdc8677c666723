package planner

import (
	"time"

	"campus-shuttle/internal/geo"
	"campus-shuttle/internal/transit"
)

// snapshot is an immutable view of one static data load.
type snapshot struct {
	data     *transit.StaticData
	stops    map[string]transit.Stop
	index    *transit.StopIndex
	loadedAt time.Time
}

func newSnapshot(d *transit.StaticData, at time.Time) *snapshot {
	return &snapshot{
		data:     d,
		stops:    d.StopsByID(),
		index:    transit.NewStopIndex(d.Stops),
		loadedAt: at,
	}
}

func (s *snapshot) resolveStop(id string) (geo.Coordinate, bool) {
	st, ok := s.stops[id]
	if !ok {
		return geo.Coordinate{}, false
	}
	return st.Coordinate(), true
}
