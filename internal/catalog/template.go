package catalog

import (
	"fmt"
	"sort"
	"time"
)

// WeeklyTemplate maps a weekday to its bookable wall times. Weekdays with no
// entry are non-working days. Each day's times are sorted ascending and
// duplicate-free; NewWeeklyTemplate enforces both.
type WeeklyTemplate map[time.Weekday][]TimeOfDay

// NewWeeklyTemplate validates raw "HH:MM" strings per weekday and returns a
// normalized template.
func NewWeeklyTemplate(raw map[time.Weekday][]string) (WeeklyTemplate, error) {
	tpl := make(WeeklyTemplate, len(raw))
	for day, times := range raw {
		if day < time.Sunday || day > time.Saturday {
			return nil, fmt.Errorf("invalid weekday %d", day)
		}
		seen := make(map[TimeOfDay]struct{}, len(times))
		slots := make([]TimeOfDay, 0, len(times))
		for _, s := range times {
			t, err := ParseTimeOfDay(s)
			if err != nil {
				return nil, fmt.Errorf("weekday %s: %w", day, err)
			}
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			slots = append(slots, t)
		}
		sort.Slice(slots, func(i, j int) bool { return slots[i].Before(slots[j]) })
		if len(slots) > 0 {
			tpl[day] = slots
		}
	}
	return tpl, nil
}

// SlotsFor returns the bookable times for a calendar day, ascending. An
// unconfigured weekday yields an empty sequence. The returned slice is a
// copy; callers may filter it in place.
func (tpl WeeklyTemplate) SlotsFor(date time.Time) []TimeOfDay {
	slots := tpl[date.Weekday()]
	out := make([]TimeOfDay, len(slots))
	copy(out, slots)
	return out
}

// Contains reports whether t is a configured slot on date's weekday.
func (tpl WeeklyTemplate) Contains(date time.Time, t TimeOfDay) bool {
	for _, s := range tpl[date.Weekday()] {
		if s == t {
			return true
		}
	}
	return false
}
