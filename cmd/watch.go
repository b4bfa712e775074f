package cmd

import (
	"context"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/rm-hull/near-expiry-food/internal/logging"
)

// Watch runs the search immediately and then on the configured cron schedule
// until ctx is cancelled. A run still in progress when the next is due is
// skipped rather than overlapped.
func Watch(ctx context.Context, configPath string, overrides Overrides, w io.Writer) error {
	a, err := bootstrap(configPath, overrides)
	if err != nil {
		return err
	}
	defer a.Close()

	c, err := a.startCron(ctx, w)
	if err != nil {
		return err
	}

	<-ctx.Done()
	a.logger.Info("stopping watch, waiting for running search")
	<-c.Stop().Done()
	return nil
}

// watchJob runs each search against newly built sources, so a vendor token
// that expired between runs is never reused.
func (a *app) watchJob(ctx context.Context, w io.Writer, cronLogger cron.Logger) cron.Job {
	return cron.NewChain(
		cron.Recover(cronLogger),
		cron.SkipIfStillRunning(cronLogger),
	).Then(cron.FuncJob(func() {
		if err := a.runOnce(ctx, a.newAggregator(), w); err != nil {
			a.logger.Error("search failed", zap.Error(err))
		}
	}))
}

func (a *app) startCron(ctx context.Context, w io.Writer) (*cron.Cron, error) {
	schedule, err := cron.ParseStandard(a.cfg.Watch.Schedule)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid schedule %q", a.cfg.Watch.Schedule)
	}

	cronLogger := logging.NewCronLogger(a.logger)
	job := a.watchJob(ctx, w, cronLogger)

	a.logger.Info("starting watch", zap.String("schedule", a.cfg.Watch.Schedule))
	job.Run()

	c := cron.New(cron.WithLogger(cronLogger))
	c.Schedule(schedule, job)
	c.Start()
	return c, nil
}
