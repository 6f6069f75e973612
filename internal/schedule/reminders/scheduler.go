package reminders

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/game-schedule/schedule-backend/internal/logging"
	"github.com/game-schedule/schedule-backend/internal/schedule/store"
)

// DefaultSchedule runs every day at 09:00 (seconds field first).
const DefaultSchedule = "0 0 9 * * *"

// StateSource yields the state reminders are computed from.
type StateSource interface {
	Snapshot() store.State
}

type Scheduler struct {
	source   StateSource
	schedule string
	now      func() time.Time
	log      *logging.Logger

	cron *cron.Cron

	mu     sync.RWMutex
	latest []Reminder
	ranAt  time.Time
}

func NewScheduler(source StateSource, schedule string) *Scheduler {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	return &Scheduler{
		source:   source,
		schedule: schedule,
		now:      time.Now,
		log:      logging.New("reminders"),
	}
}

// WithClock overrides the clock, for tests.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Start registers the reminder job and starts the cron runner.
func (s *Scheduler) Start() error {
	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(s.schedule, func() { s.RunOnce() }); err != nil {
		s.log.LogError("start", err)
		return err
	}
	s.cron = c
	c.Start()
	s.log.LogInfof("start", "reminder scheduler started (%s)", s.schedule)
	return nil
}

// Stop halts the runner and waits for a running job to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// RunOnce evaluates the current state and records the result.
func (s *Scheduler) RunOnce() []Reminder {
	st := s.source.Snapshot()
	now := s.now()
	due := Due(st.Project, st.Notifications, now)

	for _, r := range due {
		s.log.LogInfof("remind", "%s: %q due %s", r.Kind, r.Title, r.Deadline.Format("2006-01-02"))
	}

	s.mu.Lock()
	s.latest = due
	s.ranAt = now
	s.mu.Unlock()
	return due
}

// Latest returns the reminders of the last run and when it happened.
func (s *Scheduler) Latest() ([]Reminder, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Reminder, len(s.latest))
	copy(out, s.latest)
	return out, s.ranAt
}
