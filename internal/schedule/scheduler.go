// Package schedule triggers pipeline runs on a cron schedule and on demand, one run at a time.
package schedule

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// RunFunc executes one pipeline run.
type RunFunc func(ctx context.Context) error

// Scheduler fires RunFunc from a cron spec or Trigger. Overlapping requests are dropped.
type Scheduler struct {
	cron     *cron.Cron
	schedule cron.Schedule
	location *time.Location
	run      RunFunc
	logger   *zap.Logger

	ctx     context.Context
	running atomic.Bool
	wg      sync.WaitGroup
}

// New parses spec (standard five-field cron) in timezone. An empty timezone means UTC.
func New(spec, timezone string, run RunFunc, logger *zap.Logger) (*Scheduler, error) {
	if run == nil {
		return nil, fmt.Errorf("run func is required")
	}
	loc := time.UTC
	if timezone != "" {
		var err error
		loc, err = time.LoadLocation(timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %q: %w", timezone, err)
		}
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron schedule %q: %w", spec, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		schedule: schedule,
		location: loc,
		run:      run,
		logger:   logger.Named("schedule"),
		ctx:      context.Background(),
	}
	s.cron.Schedule(schedule, cron.FuncJob(func() {
		s.Trigger()
	}))
	return s, nil
}

// Start begins firing on schedule. Runs receive ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Time("next_run", s.Next(time.Now())))
}

// Next reports the first scheduled run after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t.In(s.location))
}

// Running reports whether a run is in progress.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// Trigger starts a run in the background. It returns false when one is already running.
func (s *Scheduler) Trigger() bool {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("run already in progress, skipping")
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)
		start := time.Now()
		if err := s.run(s.ctx); err != nil {
			s.logger.Error("scheduled run failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
			return
		}
		s.logger.Info("scheduled run finished", zap.Duration("duration", time.Since(start)))
	}()
	return true
}

// Stop halts the schedule and waits for an in-flight run until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	<-s.cron.Stop().Done()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for running pipeline: %w", ctx.Err())
	}
}
