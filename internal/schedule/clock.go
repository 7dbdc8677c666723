package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"campus-shuttle/internal/transit"
)

// MinutesPerDay is the modulus for minutes-of-day arithmetic.
const MinutesPerDay = 24 * 60

// ParseClock parses a 24h "HH:MM" string into minutes since midnight.
func ParseClock(s string) (int, error) {
	s = strings.TrimSpace(s)
	h, m, ok := strings.Cut(s, ":")
	if !ok || len(m) != 2 || len(h) == 0 || len(h) > 2 {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	hh, err := strconv.Atoi(h)
	if err != nil || hh < 0 || hh > 23 {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	mm, err := strconv.Atoi(m)
	if err != nil || mm < 0 || mm > 59 {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	return hh*60 + mm, nil
}

// FormatClock renders minutes-of-day as "H:MM" with no leading zero on the
// hour. Values outside one day wrap.
func FormatClock(minutes int) string {
	minutes = wrap(minutes)
	return fmt.Sprintf("%d:%02d", minutes/60, minutes%60)
}

// FormatClockPadded renders minutes-of-day as "HH:MM".
func FormatClockPadded(minutes int) string {
	minutes = wrap(minutes)
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func wrap(minutes int) int {
	return ((minutes % MinutesPerDay) + MinutesPerDay) % MinutesPerDay
}

// Moment is a weekday plus minutes since midnight.
type Moment struct {
	Day          transit.Weekday
	MinutesOfDay int
}

// MomentFromTime converts t, in its own location, to a Moment.
func MomentFromTime(t time.Time) Moment {
	return Moment{Day: transit.WeekdayOf(t.Weekday()), MinutesOfDay: t.Hour()*60 + t.Minute()}
}
