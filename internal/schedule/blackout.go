package schedule

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"campus-shuttle/internal/transit"
)

// Window is a recurring interval [Start, End) in minutes-of-day on Day
// during which no departure runs.
type Window struct {
	Day    transit.Weekday
	Start  int
	End    int
	Reason string
}

// Contains reports whether minute on day falls inside the window.
func (w Window) Contains(day transit.Weekday, minute int) bool {
	return w.Day == day && minute >= w.Start && minute < w.End
}

type Blackouts []Window

// Excludes reports whether any window covers minute on day.
func (b Blackouts) Excludes(day transit.Weekday, minute int) bool {
	for _, w := range b {
		if w.Contains(day, minute) {
			return true
		}
	}
	return false
}

// DefaultBlackouts is the Friday midday prayer break.
var DefaultBlackouts = Blackouts{
	{Day: transit.Friday, Start: 12*60 + 40, End: 14 * 60, Reason: "Friday prayers"},
}

type blackoutFile struct {
	Blackouts []struct {
		Day    string `yaml:"day"`
		Start  string `yaml:"start"`
		End    string `yaml:"end"`
		Reason string `yaml:"reason"`
	} `yaml:"blackouts"`
}

// ParseBlackouts decodes a YAML document of the form
//
//	blackouts:
//	  - day: friday
//	    start: "12:40"
//	    end: "14:00"
//	    reason: Friday prayers
func ParseBlackouts(data []byte) (Blackouts, error) {
	var f blackoutFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode blackouts: %w", err)
	}
	out := make(Blackouts, 0, len(f.Blackouts))
	for i, b := range f.Blackouts {
		day, err := transit.ParseWeekday(b.Day)
		if err != nil {
			return nil, fmt.Errorf("blackout %d: %w", i, err)
		}
		start, err := ParseClock(b.Start)
		if err != nil {
			return nil, fmt.Errorf("blackout %d start: %w", i, err)
		}
		end, err := ParseClock(b.End)
		if err != nil {
			return nil, fmt.Errorf("blackout %d end: %w", i, err)
		}
		if end <= start {
			return nil, fmt.Errorf("blackout %d: end %s is not after start %s", i, b.End, b.Start)
		}
		out = append(out, Window{Day: day, Start: start, End: end, Reason: b.Reason})
	}
	return out, nil
}

// LoadBlackouts reads a blackout YAML file.
func LoadBlackouts(path string) (Blackouts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read blackouts: %w", err)
	}
	return ParseBlackouts(data)
}
