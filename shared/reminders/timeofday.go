package reminders

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeOfDay is used when the user answers "skip" during setup.
var DefaultTimeOfDay = TimeOfDay{Hour: 9, Minute: 0}

// SkipSentinel is the recognized user input meaning "use the default time".
const SkipSentinel = "skip"

// TimeOfDay is a wall-clock time in the owner's local timezone.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// String formats the time as zero-padded "HH:MM".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Next returns the next occurrence of t strictly after now in now's location.
// time.Date normalizes in the location, so the result stays on the requested
// wall-clock time across DST transitions.
func (t TimeOfDay) Next(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), t.Hour, t.Minute, 0, 0, now.Location())
	if !next.After(now) {
		next = time.Date(now.Year(), now.Month(), now.Day()+1, t.Hour, t.Minute, 0, 0, now.Location())
	}
	return next
}

// ParseTimeOfDay parses a strict 24-hour "HH:MM" string. Malformed input is
// an error, never coerced.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return TimeOfDay{}, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid minute in %q", s)
	}
	if hour < 0 || hour > 23 {
		return TimeOfDay{}, fmt.Errorf("hour out of range in %q", s)
	}
	if minute < 0 || minute > 59 {
		return TimeOfDay{}, fmt.Errorf("minute out of range in %q", s)
	}
	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

// ParseTimeList parses comma-separated reminder times as supplied by the
// user, e.g. "08:00,14:00,20:00". The "skip" sentinel yields the default
// 09:00. Duplicate entries collapse to one.
func ParseTimeList(raw string) ([]TimeOfDay, error) {
	raw = strings.TrimSpace(raw)
	if strings.EqualFold(raw, SkipSentinel) {
		return []TimeOfDay{DefaultTimeOfDay}, nil
	}
	if raw == "" {
		return nil, fmt.Errorf("empty reminder time list")
	}

	seen := make(map[TimeOfDay]struct{})
	var times []TimeOfDay
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		tod, err := ParseTimeOfDay(part)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[tod]; dup {
			continue
		}
		seen[tod] = struct{}{}
		times = append(times, tod)
	}
	if len(times) == 0 {
		return nil, fmt.Errorf("no reminder times in %q", raw)
	}
	return times, nil
}

// TimeStrings renders times as individual "HH:MM" strings.
func TimeStrings(times []TimeOfDay) []string {
	parts := make([]string, len(times))
	for i, t := range times {
		parts[i] = t.String()
	}
	return parts
}

// FormatTimeList renders times back to the comma-separated wire format.
func FormatTimeList(times []TimeOfDay) string {
	return strings.Join(TimeStrings(times), ",")
}
