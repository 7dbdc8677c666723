package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-shuttle/internal/transit"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "00:00", want: 0},
		{in: "07:05", want: 425},
		{in: "23:59", want: 1439},
		{in: "7:05", want: 425},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "1205", wantErr: true},
		{in: "ab:cd", wantErr: true},
		{in: "12:5", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClock(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "0:10", FormatClock(1450))
	assert.Equal(t, "7:05", FormatClock(425))
	assert.Equal(t, "23:50", FormatClock(-10))
	assert.Equal(t, "07:05", FormatClockPadded(425))
	assert.Equal(t, "00:10", FormatClockPadded(1450))
}

func TestMomentFromTime(t *testing.T) {
	loc := time.FixedZone("MYT", 8*3600)
	m := MomentFromTime(time.Date(2026, 10, 16, 12, 5, 30, 0, loc))
	assert.Equal(t, Moment{Day: transit.Friday, MinutesOfDay: 725}, m)
}

var testStops = []transit.Stop{
	{ID: "S1", Name: "Main Gate", Lat: 1.5600, Lon: 103.6400},
	{ID: "S2", Name: "Library", Lat: 1.5650, Lon: 103.6400},
	{ID: "S3", Name: "Hostel", Lat: 1.5700, Lon: 103.6450},
	{ID: "S4", Name: "Faculty", Lat: 1.5800, Lon: 103.6450},
}

func TestComputeStopArrivals_Offsets(t *testing.T) {
	trip := transit.Trip{
		StopsSequence:  []string{"S1", "S2", "S3"},
		ArrivalOffsets: []int{0, 5, 20},
	}
	got, err := ComputeStopArrivals(trip, testStops, "23:50")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "23:50", got[0].ArrivalTime)
	assert.Equal(t, "23:55", got[1].ArrivalTime)
	assert.Equal(t, "0:10", got[2].ArrivalTime, "wraps past midnight")
	assert.Equal(t, 10, got[2].MinutesOfDay)
}

func TestComputeStopArrivals_SkipsUnknownStops(t *testing.T) {
	trip := transit.Trip{
		StopsSequence:  []string{"S1", "GONE", "S3"},
		ArrivalOffsets: []int{0, 4, 9},
	}
	got, err := ComputeStopArrivals(trip, testStops, "08:00")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "S3", got[1].Stop.ID)
	assert.Equal(t, "8:09", got[1].ArrivalTime)
}

func TestComputeStopArrivals_Estimator(t *testing.T) {
	trip := transit.Trip{StopsSequence: []string{"S1", "S2", "S3", "S4"}}
	got, err := ComputeStopArrivals(trip, testStops, "08:00")
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, "8:00", got[0].ArrivalTime)
	// S1->S2 is ~556 m: 556/8.33 s ~ 67 s
	assert.Equal(t, "8:01", got[1].ArrivalTime)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i].MinutesOfDay, got[i-1].MinutesOfDay, "stop %d", i)
	}
}

func TestComputeStopArrivals_EstimatorDwell(t *testing.T) {
	stops := []transit.Stop{
		{ID: "a", Lat: 0, Lon: 0},
		{ID: "b", Lat: 0, Lon: 0},
		{ID: "c", Lat: 0, Lon: 0},
		{ID: "d", Lat: 0, Lon: 0},
	}
	e := Estimator{SpeedMps: 10, Dwell: 5 * time.Minute}
	got, err := e.ComputeStopArrivals(transit.Trip{StopsSequence: []string{"a", "b", "c", "d"}}, stops, "10:00")
	require.NoError(t, err)
	// no travel time; dwell only at the two intermediate stops
	assert.Equal(t, []string{"10:00", "10:00", "10:05", "10:10"},
		[]string{got[0].ArrivalTime, got[1].ArrivalTime, got[2].ArrivalTime, got[3].ArrivalTime})
}

func TestComputeStopArrivals_InvalidReference(t *testing.T) {
	_, err := ComputeStopArrivals(transit.Trip{StopsSequence: []string{"S1"}}, testStops, "8am")
	assert.Error(t, err)
}

func TestNextDeparture(t *testing.T) {
	friday := transit.Service{ServiceID: "FRIDAY", Days: []transit.Weekday{transit.Friday}}
	weekday := transit.Service{ServiceID: "WEEKDAY", Days: []transit.Weekday{
		transit.Monday, transit.Tuesday, transit.Wednesday, transit.Thursday,
	}}
	trip := transit.Trip{Times: []string{"12:30", "12:45", "14:05"}}

	tests := []struct {
		name      string
		trip      transit.Trip
		service   transit.Service
		now       Moment
		blackouts Blackouts
		want      Departure
		wantOK    bool
	}{
		{
			name:      "blackout skips prayer break",
			trip:      trip,
			service:   friday,
			now:       Moment{Day: transit.Friday, MinutesOfDay: 720},
			blackouts: Blackouts{{Day: transit.Friday, Start: 760, End: 840}},
			want:      Departure{Time: "14:05", Day: transit.Friday, MinutesOfDay: 845},
			wantOK:    true,
		},
		{
			name:    "exact time is still eligible",
			trip:    trip,
			service: friday,
			now:     Moment{Day: transit.Friday, MinutesOfDay: 750},
			want:    Departure{Time: "12:30", Day: transit.Friday, MinutesOfDay: 750},
			wantOK:  true,
		},
		{
			name:      "window end is exclusive",
			trip:      transit.Trip{Times: []string{"14:00"}},
			service:   friday,
			now:       Moment{Day: transit.Friday, MinutesOfDay: 0},
			blackouts: DefaultBlackouts,
			want:      Departure{Time: "14:00", Day: transit.Friday, MinutesOfDay: 840},
			wantOK:    true,
		},
		{
			name:    "rolls to next service day",
			trip:    transit.Trip{Times: []string{"08:00", "07:15"}},
			service: weekday,
			now:     Moment{Day: transit.Thursday, MinutesOfDay: 600},
			want:    Departure{Time: "07:15", Day: transit.Monday, DaysAhead: 4, MinutesOfDay: 435},
			wantOK:  true,
		},
		{
			name:    "same weekday next week",
			trip:    trip,
			service: friday,
			now:     Moment{Day: transit.Friday, MinutesOfDay: 900},
			want:    Departure{Time: "12:30", Day: transit.Friday, DaysAhead: 7, MinutesOfDay: 750},
			wantOK:  true,
		},
		{
			name:    "blackout applies on future day",
			trip:    transit.Trip{Times: []string{"12:45", "13:00"}},
			service: friday,
			now:     Moment{Day: transit.Thursday, MinutesOfDay: 0},
			blackouts: Blackouts{
				{Day: transit.Friday, Start: 760, End: 790},
			},
			want:   Departure{Time: "13:00", Day: transit.Friday, DaysAhead: 1, MinutesOfDay: 780},
			wantOK: true,
		},
		{
			name:      "everything blacked out",
			trip:      transit.Trip{Times: []string{"12:45"}},
			service:   friday,
			now:       Moment{Day: transit.Friday, MinutesOfDay: 0},
			blackouts: DefaultBlackouts,
		},
		{
			name:    "no times",
			trip:    transit.Trip{},
			service: friday,
			now:     Moment{Day: transit.Friday},
		},
		{
			name:    "service never runs",
			trip:    trip,
			service: transit.Service{},
			now:     Moment{Day: transit.Friday},
		},
		{
			name:    "invalid times are ignored",
			trip:    transit.Trip{Times: []string{"bogus", "09:10"}},
			service: weekday,
			now:     Moment{Day: transit.Monday, MinutesOfDay: 0},
			want:    Departure{Time: "09:10", Day: transit.Monday, MinutesOfDay: 550},
			wantOK:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NextDeparture(tt.trip, tt.service, tt.now, tt.blackouts)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindNextDeparture(t *testing.T) {
	svc := transit.Service{Days: []transit.Weekday{transit.Friday}}
	trip := transit.Trip{Times: []string{"12:30", "12:45", "14:05"}}
	got, ok := FindNextDeparture(trip, svc, Moment{Day: transit.Friday, MinutesOfDay: 720}, Blackouts{{Day: transit.Friday, Start: 760, End: 840}})
	require.True(t, ok)
	assert.Equal(t, "14:05", got)

	_, ok = FindNextDeparture(transit.Trip{}, svc, Moment{Day: transit.Friday}, nil)
	assert.False(t, ok)
}

func TestEarliestDeparture(t *testing.T) {
	refs := []transit.TripRef{
		{Route: "Route A", Service: transit.Service{ServiceID: "WEEKDAY", Days: []transit.Weekday{transit.Monday}}, Trip: transit.Trip{Times: []string{"09:00"}}},
		{Route: "Route A", Service: transit.Service{ServiceID: "FRIDAY", Days: []transit.Weekday{transit.Friday}}, Trip: transit.Trip{Times: []string{"08:00", "16:00"}}},
	}
	ref, d, ok := EarliestDeparture(refs, Moment{Day: transit.Friday, MinutesOfDay: 600}, nil)
	require.True(t, ok)
	assert.Equal(t, "FRIDAY", ref.Service.ServiceID)
	assert.Equal(t, "16:00", d.Time)

	ref, d, ok = EarliestDeparture(refs, Moment{Day: transit.Friday, MinutesOfDay: 1000}, nil)
	require.True(t, ok)
	assert.Equal(t, "WEEKDAY", ref.Service.ServiceID)
	assert.Equal(t, 3, d.DaysAhead)

	_, _, ok = EarliestDeparture(nil, Moment{Day: transit.Friday}, nil)
	assert.False(t, ok)
}

func TestUpcomingDepartures(t *testing.T) {
	svc := transit.Service{Days: []transit.Weekday{transit.Friday}}
	trip := transit.Trip{Times: []string{"15:00", "12:50", "11:00", "13:30"}}
	got := UpcomingDepartures(trip, svc, Moment{Day: transit.Friday, MinutesOfDay: 700}, DefaultBlackouts, 0)
	require.Len(t, got, 1)
	assert.Equal(t, "15:00", got[0].Time)

	got = UpcomingDepartures(trip, svc, Moment{Day: transit.Friday, MinutesOfDay: 0}, nil, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "11:00", got[0].Time)
	assert.Equal(t, "12:50", got[1].Time)

	assert.Nil(t, UpcomingDepartures(trip, svc, Moment{Day: transit.Monday}, nil, 0))
}

func TestParseBlackouts(t *testing.T) {
	doc := []byte(`
blackouts:
  - day: friday
    start: "12:40"
    end: "14:00"
    reason: Friday prayers
  - day: Saturday
    start: "00:00"
    end: "06:00"
`)
	b, err := ParseBlackouts(doc)
	require.NoError(t, err)
	require.Len(t, b, 2)
	assert.Equal(t, DefaultBlackouts[0], b[0])
	assert.True(t, b.Excludes(transit.Saturday, 0))
	assert.False(t, b.Excludes(transit.Saturday, 360))
	assert.True(t, b.Excludes(transit.Friday, 760))
	assert.False(t, b.Excludes(transit.Friday, 840))

	_, err = ParseBlackouts([]byte("blackouts:\n  - day: someday\n    start: \"01:00\"\n    end: \"02:00\"\n"))
	assert.Error(t, err)
	_, err = ParseBlackouts([]byte("blackouts:\n  - day: monday\n    start: \"03:00\"\n    end: \"02:00\"\n"))
	assert.Error(t, err)
}
