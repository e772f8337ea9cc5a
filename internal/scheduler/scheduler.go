package scheduler

import (
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Refresher is the part of the state controller the scheduler drives.
type Refresher interface {
	Refresh(dateKey string) (uint64, error)
}

// Scheduler periodically refreshes the selected date.
type Scheduler struct {
	scheduler *gocron.Scheduler
	refresher Refresher
	interval  time.Duration
	logger    *slog.Logger
}

// New creates a new Scheduler. An interval <= 0 disables automatic refreshes.
func New(interval time.Duration, refresher Refresher, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		refresher: refresher,
		interval:  interval,
		logger:    logger,
	}
}

// Start schedules the periodic job and starts the underlying scheduler. The
// first tick happens one interval after Start.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.logger.Info("scheduler: automatic refresh disabled")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).WaitForSchedule().SingletonMode().Do(s.tick)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("scheduler: automatic refresh enabled", "interval", s.interval)
	return nil
}

func (s *Scheduler) tick() {
	seq, err := s.refresher.Refresh("")
	if err != nil {
		s.logger.Warn("scheduler: refresh not scheduled", "error", err)
		return
	}
	s.logger.Debug("scheduler: refresh scheduled", "seq", seq)
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
