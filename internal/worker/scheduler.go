package worker

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/regoguard/regoguard/internal/pkg/logger"
)

// RunFunc is one scheduled evaluation pass.
type RunFunc func(ctx context.Context) error

// Scheduler re-runs an evaluation on a cron schedule, in the
// foreground, until the context is cancelled. Used by
// `evaluate --schedule` for continuous compliance monitoring.
type Scheduler struct {
	spec   string
	run    RunFunc
	logger *logger.Logger
}

// NewScheduler creates a scheduler for the given cron expression.
func NewScheduler(spec string, run RunFunc, log *logger.Logger) *Scheduler {
	return &Scheduler{
		spec:   spec,
		run:    run,
		logger: log,
	}
}

// Start runs an initial pass immediately, then on every cron tick.
// Pass failures are logged and the schedule continues; only context
// cancellation stops it.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.WithFields(map[string]interface{}{
		"schedule": s.spec,
	}).Info("Starting scheduled evaluation")

	if err := s.run(ctx); err != nil {
		s.logger.ErrorWithErr(err, "Initial evaluation pass failed")
	}

	c := cron.New()
	_, err := c.AddFunc(s.spec, func() {
		if err := s.run(ctx); err != nil {
			s.logger.ErrorWithErr(err, "Scheduled evaluation pass failed")
		}
	})
	if err != nil {
		return err
	}

	c.Start()
	<-ctx.Done()
	stopCtx := c.Stop()
	<-stopCtx.Done()

	s.logger.Info("Scheduled evaluation stopped")
	return ctx.Err()
}
