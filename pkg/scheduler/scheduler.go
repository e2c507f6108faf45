// Package scheduler runs the game's periodic jobs on a cron clock backed by
// bounded worker pools. Critical daily jobs and frequent polling jobs get
// separate pools, so a slow feed call can never starve the daily sweeps.
package scheduler

import (
	"context"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is one scheduled unit of work. Runs are bounded by the context the
// scheduler derives per tick.
type Job func(ctx context.Context) error

type Scheduler struct {
	cron     *cron.Cron
	critical pond.Pool
	frequent pond.Pool
	logger   *zap.Logger

	ctx        context.Context
	runTimeout time.Duration
}

type Opts struct {
	// RunTimeout bounds each job run. Zero means 50 seconds.
	RunTimeout time.Duration
}

func New(ctx context.Context, o Opts, logger *zap.Logger) *Scheduler {
	if o.RunTimeout <= 0 {
		o.RunTimeout = 50 * time.Second
	}
	return &Scheduler{
		cron:       cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cron.DefaultLogger))),
		critical:   pond.NewPool(2, pond.WithQueueSize(8)),
		frequent:   pond.NewPool(2, pond.WithQueueSize(4)),
		logger:     logger,
		ctx:        ctx,
		runTimeout: o.RunTimeout,
	}
}

// AddCritical schedules a daily job on the critical pool.
func (s *Scheduler) AddCritical(spec, name string, job Job) error {
	return s.add(spec, name, s.critical, job)
}

// AddFrequent schedules a polling job on the frequent pool.
func (s *Scheduler) AddFrequent(spec, name string, job Job) error {
	return s.add(spec, name, s.frequent, job)
}

func (s *Scheduler) add(spec, name string, pool pond.Pool, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		_, ok := pool.TrySubmit(func() {
			rctx, cancel := context.WithTimeout(s.ctx, s.runTimeout)
			defer cancel()
			if err := job(rctx); err != nil {
				s.logger.Error("scheduled job failed", zap.String("job", name), zap.Error(err))
			}
		})
		if !ok {
			// The previous run is still queued; skipping keeps polling
			// cadence from piling up behind a slow feed.
			s.logger.Warn("scheduled job skipped, queue full", zap.String("job", name))
		}
	})
	if err != nil {
		return err
	}
	s.logger.Info("job scheduled", zap.String("job", name), zap.String("spec", spec))
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started")
}

// Stop halts new cron ticks and drains both pools, bounded by grace.
func (s *Scheduler) Stop(grace time.Duration) {
	<-s.cron.Stop().Done()

	done := make(chan struct{})
	go func() {
		s.critical.StopAndWait()
		s.frequent.StopAndWait()
		close(done)
	}()
	select {
	case <-done:
		s.logger.Info("scheduler stopped")
	case <-time.After(grace):
		s.logger.Warn("scheduler stop grace period elapsed, abandoning in-flight jobs")
	}
}
