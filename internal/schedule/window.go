package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/yoyole123/gdrive-transcriber/internal/config"
)

var dayNames = map[string]time.Weekday{
	"SUN": time.Sunday,
	"MON": time.Monday,
	"TUE": time.Tuesday,
	"WED": time.Wednesday,
	"THU": time.Thursday,
	"FRI": time.Friday,
	"SAT": time.Saturday,
}

// Window decides whether an automatic run may execute at a given moment.
// A disabled window always allows. An hour range whose start is after its
// end spans midnight, mirroring how day ranges may wrap the weekend.
type Window struct {
	enabled   bool
	startHour int
	endHour   int
	days      map[time.Weekday]bool
	location  *time.Location
}

// NewWindow builds a Window from the schedule configuration
func NewWindow(cfg config.ScheduleConfig) (*Window, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule timezone %q: %w", cfg.Timezone, err)
	}

	days, err := parseDays(cfg.Days)
	if err != nil {
		return nil, err
	}

	return &Window{
		enabled:   cfg.Enabled,
		startHour: cfg.StartHour,
		endHour:   cfg.EndHour,
		days:      days,
		location:  loc,
	}, nil
}

// Allows reports whether t falls inside the scheduling window
func (w *Window) Allows(t time.Time) bool {
	if !w.enabled {
		return true
	}

	local := t.In(w.location)
	if !w.days[local.Weekday()] {
		return false
	}
	hour := local.Hour()
	if w.startHour <= w.endHour {
		return hour >= w.startHour && hour <= w.endHour
	}
	// overnight window, e.g. 22-6
	return hour >= w.startHour || hour <= w.endHour
}

// parseDays parses a day spec like "SUN-THU" or "MON,WED,FRI". Ranges may wrap
// around the weekend (e.g. "FRI-MON").
func parseDays(spec string) (map[time.Weekday]bool, error) {
	days := make(map[time.Weekday]bool)

	for _, part := range strings.Split(spec, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part == "" {
			continue
		}

		if from, to, found := strings.Cut(part, "-"); found {
			start, ok := dayNames[strings.TrimSpace(from)]
			if !ok {
				return nil, fmt.Errorf("invalid day %q in schedule days %q", from, spec)
			}
			end, ok := dayNames[strings.TrimSpace(to)]
			if !ok {
				return nil, fmt.Errorf("invalid day %q in schedule days %q", to, spec)
			}
			for d := start; ; d = (d + 1) % 7 {
				days[d] = true
				if d == end {
					break
				}
			}
			continue
		}

		day, ok := dayNames[part]
		if !ok {
			return nil, fmt.Errorf("invalid day %q in schedule days %q", part, spec)
		}
		days[day] = true
	}

	if len(days) == 0 {
		return nil, fmt.Errorf("schedule days %q resolves to no days", spec)
	}
	return days, nil
}
