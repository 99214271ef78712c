package schedule

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mondayNine is Monday 2025-06-02 09:00 local time.
var mondayNine = time.Date(2025, time.June, 2, 9, 0, 0, 0, time.Local)

func newTestScheduler(sched Schedule, trigger TriggerFunc, at time.Time) *Scheduler {
	s := New(sched, trigger, discardLogger())
	s.now = func() time.Time { return at }
	return s
}

func TestTick_fires_once_on_match(t *testing.T) {
	var mu sync.Mutex
	var fired []time.Weekday
	trigger := func(day time.Weekday) {
		mu.Lock()
		fired = append(fired, day)
		mu.Unlock()
	}

	s := newTestScheduler(Schedule{time.Monday: {9, 0}}, trigger, mondayNine)

	if !s.tick() {
		t.Fatal("tick should report fired on a matching slot")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(fired) != 1 || fired[0] != time.Monday {
		t.Errorf("expected exactly one Monday trigger, got %v", fired)
	}
}

func TestTick_no_match_outside_window(t *testing.T) {
	trigger := func(time.Weekday) { t.Error("trigger must not fire") }

	at := time.Date(2025, time.June, 2, 9, 2, 0, 0, time.Local) // 09:02 vs 09:00
	s := newTestScheduler(Schedule{time.Monday: {9, 0}}, trigger, at)
	if s.tick() {
		t.Error("tick should not fire at 09:02 for a 09:00 slot")
	}
}

func TestTick_no_entry_for_today(t *testing.T) {
	trigger := func(time.Weekday) { t.Error("trigger must not fire") }

	s := newTestScheduler(Schedule{time.Friday: {9, 0}}, trigger, mondayNine)
	if s.tick() {
		t.Error("tick should not fire when today has no slot")
	}
}

func TestTick_can_fire_on_consecutive_ticks(t *testing.T) {
	// The 2-minute window fires on consecutive wake-ups by design; the run
	// ledger guard absorbs the duplicate.
	count := 0
	s := newTestScheduler(Schedule{time.Monday: {9, 0}}, func(time.Weekday) { count++ }, mondayNine)

	s.tick()
	s.now = func() time.Time {
		return time.Date(2025, time.June, 2, 9, 1, 0, 0, time.Local)
	}
	s.tick()

	if count != 2 {
		t.Errorf("expected both ticks inside the window to fire, got %d", count)
	}
}

func TestTick_recovers_trigger_panic(t *testing.T) {
	s := newTestScheduler(Schedule{time.Monday: {9, 0}}, func(time.Weekday) {
		panic("callback fault")
	}, mondayNine)

	// Must not propagate.
	s.tick()
	// The loop stays usable afterwards.
	if !s.tick() {
		t.Error("tick should still match after a panicking trigger")
	}
}

func TestStartStop(t *testing.T) {
	s := newTestScheduler(Schedule{}, func(time.Weekday) {}, mondayNine)
	s.interval = time.Millisecond

	s.Start()
	if !s.Running() {
		t.Fatal("scheduler should be running after Start")
	}
	s.Start() // idempotent

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return within the tick bound")
	}
	if s.Running() {
		t.Error("scheduler should be stopped after Stop")
	}
	s.Stop() // idempotent
}

func TestLoop_ticks_and_observes(t *testing.T) {
	var mu sync.Mutex
	ticks := 0

	s := newTestScheduler(Schedule{}, func(time.Weekday) {}, mondayNine)
	s.interval = time.Millisecond
	s.SetTickObserver(func(bool) {
		mu.Lock()
		ticks++
		mu.Unlock()
	})

	s.Start()
	time.Sleep(20 * time.Millisecond)
	s.Stop()

	mu.Lock()
	defer mu.Unlock()
	if ticks == 0 {
		t.Error("expected at least one observed tick")
	}
}

func TestUpdateSchedule(t *testing.T) {
	count := 0
	s := newTestScheduler(Schedule{}, func(time.Weekday) { count++ }, mondayNine)

	if s.tick() {
		t.Fatal("empty schedule should never fire")
	}
	s.UpdateSchedule(Schedule{time.Monday: {9, 0}})
	if !s.tick() {
		t.Fatal("updated schedule should fire")
	}
	if count != 1 {
		t.Errorf("expected one trigger, got %d", count)
	}
}
