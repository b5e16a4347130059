// Package sched runs the bot's periodic jobs on fixed intervals.
package sched

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/scrum-maestro/agent/internal/metrics"
)

// Job is one periodic unit of work.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler drives a goroutine per job. A tick that arrives while the
// previous run of the same job is still in flight is skipped, so a slow
// pass never stacks up concurrent runs of itself.
type Scheduler struct {
	jobs    []Job
	metrics *metrics.Metrics
	logger  zerolog.Logger
	wg      sync.WaitGroup
}

// New creates an empty scheduler.
func New(m *metrics.Metrics, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		metrics: m,
		logger:  logger.With().Str("component", "sched").Logger(),
	}
}

// Register adds a job. Must be called before Start.
func (s *Scheduler) Register(job Job) {
	s.jobs = append(s.jobs, job)
}

// Start launches all registered jobs and returns immediately.
func (s *Scheduler) Start(ctx context.Context) {
	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.runJob(ctx, job)
	}
	s.logger.Info().Int("jobs", len(s.jobs)).Msg("scheduler started")
}

// Wait blocks until all job loops have exited after context cancellation.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) runJob(ctx context.Context, job Job) {
	defer s.wg.Done()

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	s.logger.Info().Str("job", job.Name).Dur("interval", job.Interval).Msg("job started")

	var running atomic.Bool
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Str("job", job.Name).Msg("job stopped")
			return
		case <-ticker.C:
			if !running.CompareAndSwap(false, true) {
				s.logger.Warn().Str("job", job.Name).Msg("previous run still in flight, skipping tick")
				s.metrics.RecordJobRun(job.Name, "skipped")
				continue
			}
			s.wg.Add(1)
			go s.execute(ctx, job, &running)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, job Job, running *atomic.Bool) {
	defer s.wg.Done()
	defer running.Store(false)

	start := time.Now()
	err := job.Run(ctx)
	elapsed := time.Since(start)

	s.metrics.ObserveJobDuration(job.Name, elapsed.Seconds())
	if err != nil {
		s.metrics.RecordJobRun(job.Name, "error")
		s.logger.Error().Err(err).Str("job", job.Name).Dur("elapsed", elapsed).Msg("job run failed")
		return
	}
	s.metrics.RecordJobRun(job.Name, "ok")
	s.logger.Debug().Str("job", job.Name).Dur("elapsed", elapsed).Msg("job run complete")
}
