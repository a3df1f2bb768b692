package scheduler

import (
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

const defaultInterval = 5 * time.Minute

// Evicter drops sessions idle since a cutoff.
type Evicter interface {
	EvictIdle(cutoff time.Time) int
	Len() int
}

// Scheduler periodically evicts idle chat sessions.
type Scheduler struct {
	scheduler *gocron.Scheduler
	store     Evicter
	interval  time.Duration
	maxAge    time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// New creates a new Scheduler. A non-positive interval falls back to five
// minutes; a non-positive maxAge disables eviction.
func New(store Evicter, interval, maxAge time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = defaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		store:     store,
		interval:  interval,
		maxAge:    maxAge,
		now:       time.Now,
		logger:    logger,
	}
}

// Start schedules the sweep job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.maxAge <= 0 {
		s.logger.Info("scheduler: session max age not set; nothing to schedule")
		return nil
	}

	if _, err := s.scheduler.Every(s.interval).Do(s.Sweep); err != nil {
		return err
	}
	s.scheduler.StartAsync()
	return nil
}

// Sweep runs one eviction pass and returns how many sessions were dropped.
func (s *Scheduler) Sweep() int {
	evicted := s.store.EvictIdle(s.now().Add(-s.maxAge))
	if evicted > 0 {
		s.logger.Info("scheduler: evicted idle sessions", "evicted", evicted, "remaining", s.store.Len())
	}
	return evicted
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil && s.scheduler.IsRunning() {
		s.scheduler.Stop()
	}
}
