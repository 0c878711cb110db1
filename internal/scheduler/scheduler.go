// Package scheduler provides a daily scheduler for recording cost estimates.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Runner runs one recording pass.
type Runner interface {
	RecordAll(ctx context.Context) error
}

// Scheduler manages the daily recording schedule.
type Scheduler struct {
	runner     Runner
	recordHour int
	logger     zerolog.Logger

	mu        sync.RWMutex
	nextRunAt time.Time
	lastRunAt *time.Time
	running   bool
}

// New creates a new Scheduler.
func New(r Runner, recordHour int, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		runner:     r,
		recordHour: recordHour,
		logger:     logger.With().Str("component", "scheduler").Logger(),
	}
}

// Start starts the scheduler and blocks until the context is cancelled.
// A first run happens immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.logger.Info().Int("recordHour", s.recordHour).Msg("starting scheduler")

	s.runRecord(ctx)

	next := s.scheduleNext()
	timer := time.NewTimer(time.Until(next))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler stopped")
			return ctx.Err()
		case <-timer.C:
			s.runRecord(ctx)
			next = s.scheduleNext()
			timer.Reset(time.Until(next))
		}
	}
}

func (s *Scheduler) scheduleNext() time.Time {
	next := nextRunTime(time.Now(), s.recordHour)
	s.mu.Lock()
	s.nextRunAt = next
	s.mu.Unlock()

	s.logger.Info().
		Time("nextRun", next).
		Dur("duration", time.Until(next)).
		Msg("next recording scheduled")

	return next
}

// nextRunTime returns the first moment at hour:00 strictly after now.
func nextRunTime(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (s *Scheduler) runRecord(ctx context.Context) {
	s.logger.Info().Msg("running scheduled recording")

	now := time.Now()
	s.mu.Lock()
	s.lastRunAt = &now
	s.mu.Unlock()

	if err := s.runner.RecordAll(ctx); err != nil {
		s.logger.Error().Err(err).Msg("scheduled recording failed")
	} else {
		s.logger.Info().Msg("scheduled recording completed")
	}
}

// NextRunAt returns the time of the next scheduled recording.
func (s *Scheduler) NextRunAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextRunAt
}

// LastRunAt returns the time of the last recording.
func (s *Scheduler) LastRunAt() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRunAt
}

// IsRunning returns whether the scheduler is currently running.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}
