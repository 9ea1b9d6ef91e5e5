// ABOUTME: This file schedules recurring maintenance work on fixed intervals.
// ABOUTME: Failing jobs retry on an exponentially growing delay until healthy.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	firstRetryDelay = 30 * time.Second
	maxRetryDelay   = 5 * time.Minute
)

// Job is one recurring task. A failed run pushes the next execution out by
// a doubling delay; a clean run restores the regular interval.
type Job struct {
	Name        string
	Interval    time.Duration
	Immediately bool
	Run         func(ctx context.Context) error
}

// Scheduler drives registered jobs, one goroutine each, until stopped.
type Scheduler struct {
	logger *slog.Logger

	mu      sync.Mutex
	jobs    []Job
	started bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates an empty scheduler.
func NewScheduler(logger *slog.Logger) *Scheduler {
	return &Scheduler{logger: logger}
}

// Register adds a job. Registrations after Start are ignored.
func (s *Scheduler) Register(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		s.logger.Warn("job registered after scheduler start, ignoring", "job", job.Name)
		return
	}

	s.jobs = append(s.jobs, job)
}

// Start launches every registered job. The jobs stop when ctx is canceled
// or Stop is called, whichever comes first.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()

	if s.started {
		s.mu.Unlock()
		return
	}

	s.started = true
	jobs := make([]Job, len(s.jobs))
	copy(jobs, s.jobs)

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	for _, job := range jobs {
		s.wg.Add(1)

		go func() {
			defer s.wg.Done()
			s.drive(runCtx, job)
		}()
	}

	s.logger.Info("scheduler started", "jobs", len(jobs))
}

// Stop cancels all jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	s.wg.Wait()

	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) drive(ctx context.Context, job Job) {
	interval := job.Interval
	if interval <= 0 {
		interval = time.Minute
	}

	streak := 0

	if job.Immediately {
		streak = s.runOnce(ctx, job, streak)
	}

	timer := time.NewTimer(nextDelay(interval, streak))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			streak = s.runOnce(ctx, job, streak)
			timer.Reset(nextDelay(interval, streak))
		}
	}
}

// runOnce executes the job and returns the updated consecutive-failure
// streak. Cancellation mid-run does not count as a failure.
func (s *Scheduler) runOnce(ctx context.Context, job Job, streak int) int {
	if ctx.Err() != nil {
		return streak
	}

	err := s.execute(ctx, job)
	if err != nil {
		if ctx.Err() != nil {
			return streak
		}

		streak++
		s.logger.Warn("job failed",
			"job", job.Name,
			"consecutive_failures", streak,
			"error", err)

		return streak
	}

	if streak > 0 {
		s.logger.Info("job recovered", "job", job.Name, "after_failures", streak)
	}

	return 0
}

func (s *Scheduler) execute(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name, r)
		}
	}()

	return job.Run(ctx)
}

// nextDelay picks the wait before the next run. Healthy jobs keep their
// interval; failing jobs retry on a doubling delay capped at maxRetryDelay,
// even when that is sooner than the interval.
func nextDelay(interval time.Duration, streak int) time.Duration {
	if streak <= 0 {
		return interval
	}

	delay := firstRetryDelay

	for i := 1; i < streak; i++ {
		delay *= 2
		if delay >= maxRetryDelay {
			return maxRetryDelay
		}
	}

	return delay
}
