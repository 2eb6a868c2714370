package catalog

import (
	"errors"
	"fmt"
)

// TimeOfDay is a 24-hour clinic-local "HH:MM" wall time. Values built through
// ParseTimeOfDay are always well formed.
type TimeOfDay string

var ErrBadTimeOfDay = errors.New("time of day must be HH:MM in 24-hour form")

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	if len(s) != 5 || s[2] != ':' {
		return "", fmt.Errorf("%w: %q", ErrBadTimeOfDay, s)
	}
	for _, i := range []int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return "", fmt.Errorf("%w: %q", ErrBadTimeOfDay, s)
		}
	}
	hour := int(s[0]-'0')*10 + int(s[1]-'0')
	min := int(s[3]-'0')*10 + int(s[4]-'0')
	if hour > 23 || min > 59 {
		return "", fmt.Errorf("%w: %q", ErrBadTimeOfDay, s)
	}
	return TimeOfDay(s), nil
}

// Clock returns the hour and minute components. It assumes a value built
// through ParseTimeOfDay.
func (t TimeOfDay) Clock() (hour, min int) {
	hour = int(t[0]-'0')*10 + int(t[1]-'0')
	min = int(t[3]-'0')*10 + int(t[4]-'0')
	return hour, min
}

// Minutes returns minutes since midnight, the sort key for slots within a day.
func (t TimeOfDay) Minutes() int {
	hour, min := t.Clock()
	return hour*60 + min
}

func (t TimeOfDay) Before(u TimeOfDay) bool {
	return t.Minutes() < u.Minutes()
}

func (t TimeOfDay) String() string {
	return string(t)
}
