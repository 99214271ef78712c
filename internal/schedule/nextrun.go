package schedule

import (
	"fmt"
	"time"
)

// NoScheduleConfigured is returned by NextRun when the schedule is empty.
const NoScheduleConfigured = "No schedule configured"

// NextRun describes the next slot that will fire: today's slot if its time is
// still ahead, otherwise the first configured slot within the next 7 days.
func (s *Scheduler) NextRun() string {
	s.mu.Lock()
	sched := s.schedule
	s.mu.Unlock()
	return nextRun(sched, s.now())
}

func nextRun(sched Schedule, now time.Time) string {
	if len(sched) == 0 {
		return NoScheduleConfigured
	}

	today := now.Weekday()
	nowMinutes := now.Hour()*60 + now.Minute()

	if slot, ok := sched[today]; ok && nowMinutes < slot.minutes() {
		return fmt.Sprintf("Today (%s) at %s", today, slot)
	}

	for offset := 1; offset <= 7; offset++ {
		day := time.Weekday((int(today) + offset) % 7)
		if slot, ok := sched[day]; ok {
			plural := ""
			if offset > 1 {
				plural = "s"
			}
			return fmt.Sprintf("%s (%d day%s) at %s", day, offset, plural, slot)
		}
	}

	// Unreachable for a non-empty schedule: the 7-day scan wraps the week.
	return "No upcoming scheduled runs"
}
