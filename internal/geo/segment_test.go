package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lonLat(pairs ...[2]float64) Path {
	p := make(Path, len(pairs))
	for i, pr := range pairs {
		p[i] = Coordinate{Lat: pr[1], Lon: pr[0]}
	}
	return p
}

func TestHaversine(t *testing.T) {
	a := Coordinate{Lat: 0, Lon: 0}
	b := Coordinate{Lat: 1, Lon: 0}
	// one degree of latitude on a 6371 km sphere
	assert.InDelta(t, 111194.9, Haversine(a, b), 0.5)
	assert.Equal(t, 0.0, Haversine(a, a))
	assert.InDelta(t, Haversine(a, b), Haversine(b, a), 1e-9)
}

func TestNearestIndex(t *testing.T) {
	p := lonLat([2]float64{0, 0}, [2]float64{0, 1}, [2]float64{0, 1}, [2]float64{0, 2})
	assert.Equal(t, 1, NearestIndex(p, Coordinate{Lat: 1, Lon: 0}), "ties resolve to the lowest index")
	assert.Equal(t, 3, NearestIndex(p, Coordinate{Lat: 5, Lon: 0}))
	assert.Equal(t, -1, NearestIndex(nil, Coordinate{}))
}

func TestExtractDirectedSegment(t *testing.T) {
	line := lonLat([2]float64{0, 0}, [2]float64{0, 1}, [2]float64{0, 2}, [2]float64{0, 3}, [2]float64{0, 4})

	tests := []struct {
		name     string
		geometry Path
		start    Coordinate
		end      Coordinate
		want     Path
	}{
		{
			name:     "round trip three point route",
			geometry: lonLat([2]float64{0, 0}, [2]float64{0, 1}, [2]float64{0, 2}),
			start:    Coordinate{Lat: 0, Lon: 0},
			end:      Coordinate{Lat: 2, Lon: 0},
			want:     lonLat([2]float64{0, 0}, [2]float64{0, 1}, [2]float64{0, 2}),
		},
		{
			name:     "forward sub-segment",
			geometry: line,
			start:    Coordinate{Lat: 1.1, Lon: 0.01},
			end:      Coordinate{Lat: 2.9, Lon: -0.01},
			want:     lonLat([2]float64{0, 1}, [2]float64{0, 2}, [2]float64{0, 3}),
		},
		{
			name:     "travel against encoding direction",
			geometry: line,
			start:    Coordinate{Lat: 3, Lon: 0},
			end:      Coordinate{Lat: 1, Lon: 0},
			want:     lonLat([2]float64{0, 3}, [2]float64{0, 2}, [2]float64{0, 1}),
		},
		{
			name:     "same nearest point yields single point",
			geometry: line,
			start:    Coordinate{Lat: 2.1, Lon: 0},
			end:      Coordinate{Lat: 1.9, Lon: 0},
			want:     lonLat([2]float64{0, 2}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractDirectedSegment(tt.geometry, tt.start, tt.end)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractDirectedSegment_Empty(t *testing.T) {
	assert.Nil(t, ExtractDirectedSegment(nil, Coordinate{}, Coordinate{Lat: 1}))
	assert.Nil(t, ExtractDirectedSegment(Path{}, Coordinate{}, Coordinate{Lat: 1}))
}

func TestExtractDirectedSegment_NaNEndpoint(t *testing.T) {
	p := lonLat([2]float64{0, 0}, [2]float64{1, 0}, [2]float64{2, 0})
	nan := Coordinate{Lat: math.NaN(), Lon: 0}
	assert.Equal(t, -1, NearestIndex(p, nan))
	assert.Nil(t, ExtractDirectedSegment(p, nan, p[2]))
	assert.Nil(t, ExtractDirectedSegment(p, p[0], nan))

	first, second := SplitLoop(p, nan)
	assert.Equal(t, p, first)
	assert.Nil(t, second)
}

func TestExtractDirectedSegment_DoesNotAliasInput(t *testing.T) {
	line := lonLat([2]float64{0, 0}, [2]float64{0, 1}, [2]float64{0, 2})
	seg := ExtractDirectedSegment(line, Coordinate{Lat: 0}, Coordinate{Lat: 2})
	require.Len(t, seg, 3)
	seg[0].Lat = 99
	assert.Equal(t, 0.0, line[0].Lat)
}

func TestExtractDirectedSegment_DirectionProperty(t *testing.T) {
	// gentle arc, not self-intersecting
	var arc Path
	for i := 0; i <= 40; i++ {
		f := float64(i) / 40
		arc = append(arc, Coordinate{Lat: 3.1 + 0.01*f, Lon: 101.6 + 0.02*f*f})
	}
	for a := 0; a < len(arc); a += 7 {
		for b := 0; b < len(arc); b += 5 {
			if a == b {
				continue
			}
			start := Coordinate{Lat: arc[a].Lat + 0.00001, Lon: arc[a].Lon}
			end := Coordinate{Lat: arc[b].Lat, Lon: arc[b].Lon - 0.00001}
			seg := ExtractDirectedSegment(arc, start, end)
			require.GreaterOrEqual(t, len(seg), 2)
			assert.LessOrEqual(t, Haversine(start, seg.First()), Haversine(start, seg.Last()), "a=%d b=%d", a, b)
			assert.Equal(t, arc[a], seg.First())
			assert.Equal(t, arc[b], seg.Last())
		}
	}
}

func TestSplitLoop(t *testing.T) {
	loop := lonLat(
		[2]float64{0, 0}, [2]float64{1, 0}, [2]float64{2, 0},
		[2]float64{2, 1}, [2]float64{1, 1}, [2]float64{0, 1},
	)
	first, second := SplitLoop(loop, Coordinate{Lat: 0.1, Lon: 2})
	assert.Equal(t, loop[:3], first)
	assert.Equal(t, loop[2:], second)
	assert.Equal(t, first.Last(), second.First())

	joined := append(Path{}, first...)
	joined = append(joined, second[1:]...)
	assert.Equal(t, loop, joined)

	f, s := SplitLoop(nil, Coordinate{})
	assert.Nil(t, f)
	assert.Nil(t, s)
}
