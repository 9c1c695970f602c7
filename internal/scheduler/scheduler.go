// Package scheduler runs periodic full rebuilds as a safety net for missed
// filesystem events.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	ferrors "git.home.luguber.info/inful/mdsite/internal/foundation/errors"
	"git.home.luguber.info/inful/mdsite/internal/logfields"
	"git.home.luguber.info/inful/mdsite/internal/rebuild"
)

// Rebuilder performs one full build.
type Rebuilder interface {
	Rebuild(ctx context.Context, trigger string) rebuild.Result
}

// Scheduler wraps a gocron scheduler running one periodic rebuild job.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
}

// New creates a scheduler. Jobs do not run until Start.
func New(logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, ferrors.RuntimeError("create scheduler").WithCause(err).Build()
	}
	return &Scheduler{scheduler: s, logger: logger}, nil
}

// SchedulePeriodicRebuild runs rb every interval, skipping a run while the
// previous one is still going. ctx is passed to every rebuild.
// Returns the job ID for later management.
func (s *Scheduler) SchedulePeriodicRebuild(ctx context.Context, interval time.Duration, rb Rebuilder) (string, error) {
	if interval <= 0 {
		return "", ferrors.ValidationError("rebuild interval must be positive").
			WithContext("interval", interval.String()).
			Build()
	}
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.executeRebuild, ctx, rb),
		gocron.WithName("periodic-rebuild"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return "", ferrors.RuntimeError("create periodic rebuild job").WithCause(err).Build()
	}
	s.logger.Info("Scheduled periodic rebuild", slog.String("interval", interval.String()))
	return job.ID().String(), nil
}

// executeRebuild is called by gocron for each scheduled run.
func (s *Scheduler) executeRebuild(ctx context.Context, rb Rebuilder) {
	if ctx.Err() != nil {
		return
	}
	res := rb.Rebuild(ctx, rebuild.TriggerSchedule)
	s.logger.Debug("Scheduled rebuild finished", logfields.BuildID(res.ID), slog.Bool("success", res.Success()))
}

// Start begins running scheduled jobs.
func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler")
	s.scheduler.Start()
}

// Stop waits for running jobs and shuts the scheduler down.
func (s *Scheduler) Stop() error {
	s.logger.Info("Stopping scheduler")
	if err := s.scheduler.Shutdown(); err != nil {
		return ferrors.RuntimeError("stop scheduler").WithCause(err).Build()
	}
	return nil
}
