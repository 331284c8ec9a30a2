package scheduler

import (
	"context"
	"fmt"
	"time"

	"scada_quote_backend/platform/config"
	"scada_quote_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Periodic enqueues recurring quote jobs on their cron schedule.
type Periodic struct {
	scheduler *asynq.Scheduler
	log       *logger.Logger
}

// NewPeriodic registers the expiry sweep. An empty cron expression disables it and
// returns nil.
func NewPeriodic(cfg config.SchedulerConfig, log *logger.Logger) (*Periodic, error) {
	cronspec := cfg.GetExpirySweepCron()
	if cronspec == "" {
		return nil, nil
	}

	opt, queue, err := connection(cfg)
	if err != nil {
		return nil, err
	}

	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{
		Location: time.UTC,
		PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
			if err != nil {
				log.JobFailed(TaskQuoteExpirySweep, err)
			}
		},
	})

	if _, err := scheduler.Register(cronspec, NewQuoteExpirySweepTask(), asynq.Queue(queue), asynq.MaxRetry(1)); err != nil {
		return nil, fmt.Errorf("register expiry sweep %q: %w", cronspec, err)
	}

	return &Periodic{scheduler: scheduler, log: log}, nil
}

// Run blocks until ctx is done.
func (p *Periodic) Run(ctx context.Context) {
	if p == nil || p.scheduler == nil {
		return
	}

	if err := p.scheduler.Start(); err != nil {
		p.log.Error("periodic scheduler failed to start", "error", err)
		return
	}
	<-ctx.Done()
	p.scheduler.Shutdown()
}
