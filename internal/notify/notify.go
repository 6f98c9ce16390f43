// Package notify schedules the local "check your billing" reminder. Session
// transitions fire these as best-effort side effects; a scheduler failure must
// never fail a sign-in.
package notify

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Scheduler is the platform notification boundary consumed by the session
// manager.
type Scheduler interface {
	ScheduleDailyReminder(hour, minute int) error
	CancelAll()
}

// CronScheduler runs reminders on an in-process cron, for platforms without a
// native notification service.
type CronScheduler struct {
	cron   *cron.Cron
	fire   func()
	logger *slog.Logger

	mu      sync.Mutex
	entries []cron.EntryID
}

var _ Scheduler = (*CronScheduler)(nil)

// NewCronScheduler starts a scheduler that invokes fire at each reminder.
func NewCronScheduler(fire func(), logger *slog.Logger) *CronScheduler {
	s := &CronScheduler{
		cron:   cron.New(),
		fire:   fire,
		logger: logger.With(slog.String("component", "notify")),
	}
	s.cron.Start()
	return s
}

func (s *CronScheduler) ScheduleDailyReminder(hour, minute int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	spec := fmt.Sprintf("%d %d * * *", minute, hour)
	id, err := s.cron.AddFunc(spec, s.fire)
	if err != nil {
		return fmt.Errorf("schedule reminder: %w", err)
	}
	s.entries = append(s.entries, id)
	s.logger.Debug("daily reminder scheduled", slog.Int("hour", hour), slog.Int("minute", minute))
	return nil
}

func (s *CronScheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.entries {
		s.cron.Remove(id)
	}
	s.entries = nil
}

// Stop halts the underlying cron. Only the process teardown path calls this.
func (s *CronScheduler) Stop() {
	s.cron.Stop()
}

// Noop discards all scheduling calls.
type Noop struct{}

var _ Scheduler = Noop{}

func (Noop) ScheduleDailyReminder(hour, minute int) error { return nil }
func (Noop) CancelAll()                                   {}
