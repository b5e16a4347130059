package sched

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/scrum-maestro/agent/internal/metrics"
)

func newScheduler() *Scheduler {
	return New(metrics.New(), zerolog.New(os.Stderr))
}

func TestScheduler_RunsJobsPeriodically(t *testing.T) {
	s := newScheduler()
	var runs atomic.Int32
	s.Register(Job{
		Name:     "tick",
		Interval: 10 * time.Millisecond,
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	time.Sleep(100 * time.Millisecond)
	cancel()
	s.Wait()

	assert.GreaterOrEqual(t, runs.Load(), int32(3))
}

func TestScheduler_SkipsOverlappingRuns(t *testing.T) {
	s := newScheduler()
	var started atomic.Int32
	block := make(chan struct{})
	s.Register(Job{
		Name:     "slow",
		Interval: 10 * time.Millisecond,
		Run: func(ctx context.Context) error {
			started.Add(1)
			<-block
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(1), started.Load())

	close(block)
	cancel()
	s.Wait()
}

func TestScheduler_JobErrorDoesNotStopLoop(t *testing.T) {
	s := newScheduler()
	var runs atomic.Int32
	s.Register(Job{
		Name:     "flaky",
		Interval: 10 * time.Millisecond,
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return errors.New("boom")
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	time.Sleep(60 * time.Millisecond)
	cancel()
	s.Wait()

	assert.GreaterOrEqual(t, runs.Load(), int32(2))
}

func TestScheduler_StopsOnCancel(t *testing.T) {
	s := newScheduler()
	var runs atomic.Int32
	s.Register(Job{
		Name:     "tick",
		Interval: 5 * time.Millisecond,
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	time.Sleep(30 * time.Millisecond)
	cancel()
	s.Wait()

	settled := runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, settled, runs.Load())
}
