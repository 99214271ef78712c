package schedule

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultCheckInterval is how often the scheduler compares wall-clock time to
// the configured slots. It is shorter than the 2-minute firing window, so a
// slot can fire on two consecutive ticks; the trigger must tolerate that.
const DefaultCheckInterval = time.Minute

// TriggerFunc is invoked with the matched weekday when a slot fires.
type TriggerFunc func(day time.Weekday)

// TickObserver is called once per scheduler wake-up, before matching.
// Used to feed metrics; may be nil.
type TickObserver func(fired bool)

// Scheduler runs a background loop that fires trigger at configured slots.
// It moves Stopped -> Running on Start and back on Stop; both are safe to
// call more than once.
type Scheduler struct {
	mu       sync.Mutex
	schedule Schedule
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}

	trigger  TriggerFunc
	onTick   TickObserver
	log      *slog.Logger
	interval time.Duration
	now      func() time.Time
}

// New returns a stopped Scheduler for the given schedule and trigger.
func New(sched Schedule, trigger TriggerFunc, log *slog.Logger) *Scheduler {
	return &Scheduler{
		schedule: sched,
		trigger:  trigger,
		log:      log,
		interval: DefaultCheckInterval,
		now:      time.Now,
	}
}

// SetTickObserver registers an observer called after every wake-up.
// Must be called before Start.
func (s *Scheduler) SetTickObserver(f TickObserver) {
	s.onTick = f
}

// SetCheckInterval overrides the wake-up interval. Must be called before
// Start; intervals above the firing window will miss slots.
func (s *Scheduler) SetCheckInterval(d time.Duration) {
	if d > 0 {
		s.interval = d
	}
}

// Start launches the scheduler loop. Starting a running scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.log.Info("scheduler started",
		slog.Int("slots", len(s.schedule)),
		slog.Duration("check_interval", s.interval),
	)
	go s.loop(s.stopCh, s.doneCh)
}

// Stop signals the loop to exit and waits for it. The loop observes the stop
// at its next wake boundary, so Stop returns within one check interval.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	done := s.doneCh
	s.mu.Unlock()

	<-done
	s.log.Info("scheduler stopped")
}

// Running reports whether the loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// UpdateSchedule replaces the slot table. Takes effect on the next tick.
func (s *Scheduler) UpdateSchedule(sched Schedule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedule = sched
}

func (s *Scheduler) loop(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			fired := s.tick()
			if s.onTick != nil {
				s.onTick(fired)
			}
		}
	}
}

// tick compares the current weekday and HH:MM against the schedule and fires
// the trigger on a match. A trigger panic is recovered and logged; the loop
// must never die from a callback fault. Reports whether the trigger fired.
func (s *Scheduler) tick() bool {
	now := s.now()
	day := now.Weekday()

	s.mu.Lock()
	slot, ok := s.schedule[day]
	s.mu.Unlock()
	if !ok {
		return false
	}

	current := ClockTime{Hour: now.Hour(), Minute: now.Minute()}
	if !TimesMatch(current, slot) {
		return false
	}

	s.log.Info("scheduled slot reached",
		slog.String("weekday", day.String()),
		slog.String("slot", slot.String()),
	)
	s.fire(day)
	return true
}

func (s *Scheduler) fire(day time.Weekday) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("scheduled trigger panicked", slog.Any("panic", r))
		}
	}()
	s.trigger(day)
}
