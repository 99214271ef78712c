// Package schedule fires a trigger at configured weekday/time slots. Time
// matching is deliberately tolerant (a 2-minute window per slot) so a briefly
// descheduled process does not miss its slot; callers must make the trigger
// idempotent, which the run ledger guard provides.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ClockTime is a time of day at minute resolution.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClockTime parses "HH:MM" with hour in [0,23] and minute in [0,59].
func ParseClockTime(s string) (ClockTime, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return ClockTime{}, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return ClockTime{}, fmt.Errorf("invalid hour in %q: %w", s, err)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return ClockTime{}, fmt.Errorf("invalid minute in %q: %w", s, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return ClockTime{}, fmt.Errorf("time %q out of range", s)
	}
	return ClockTime{Hour: hour, Minute: minute}, nil
}

// String formats the time as zero-padded "HH:MM".
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// minutes is the time of day expressed in minutes since midnight.
func (c ClockTime) minutes() int {
	return c.Hour*60 + c.Minute
}

// Schedule maps weekdays to at most one slot each. Assigning to a weekday
// overwrites its previous slot.
type Schedule map[time.Weekday]ClockTime

// ParseSchedule builds a Schedule from a settings map of weekday names
// ("Monday".."Sunday") to "HH:MM" strings.
func ParseSchedule(m map[string]string) (Schedule, error) {
	s := make(Schedule, len(m))
	for name, value := range m {
		day, err := parseWeekday(name)
		if err != nil {
			return nil, err
		}
		ct, err := ParseClockTime(value)
		if err != nil {
			return nil, fmt.Errorf("schedule entry %s: %w", name, err)
		}
		s[day] = ct
	}
	return s, nil
}

func parseWeekday(name string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), strings.TrimSpace(name)) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", name)
}

// TimesMatch reports whether current falls inside the firing window of
// scheduled: at most one minute apart, crossing hour boundaries (08:59
// matches a 09:00 slot). The window is two minutes wide on purpose; see the
// package comment.
func TimesMatch(current, scheduled ClockTime) bool {
	diff := current.minutes() - scheduled.minutes()
	if diff < 0 {
		diff = -diff
	}
	return diff <= 1
}
