package billing

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kelvinhq/kelvin/pkg/async"
	"github.com/kelvinhq/kelvin/pkg/observability"
)

// Refresher re-pulls the plan catalog on a schedule so the pricing page
// serves warm data even across backend blips.
type Refresher struct {
	client  *CachingClient
	logger  *observability.Logger
	cron    *cron.Cron
	timeout time.Duration
}

// NewRefresher creates a refresher for client. Call Start to schedule it.
func NewRefresher(client *CachingClient, logger *observability.Logger) *Refresher {
	return &Refresher{
		client:  client,
		logger:  logger,
		cron:    cron.New(),
		timeout: DefaultTimeout,
	}
}

// Start schedules catalog refreshes at the given cron spec (e.g. "@every 5m")
// and runs one immediate warm-up refresh in the background.
func (r *Refresher) Start(spec string) error {
	if _, err := r.cron.AddFunc(spec, r.refresh); err != nil {
		return err
	}
	r.cron.Start()
	async.SafeGo(context.Background(), r.timeout, "catalog warm-up", r.logger, func(ctx context.Context) error {
		return r.client.Refresh(ctx)
	})
	return nil
}

// Stop halts the schedule, waiting for a running refresh to finish.
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
}

func (r *Refresher) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.client.Refresh(ctx); err != nil {
		r.logger.WithError(err).Warn("catalog refresh failed, serving cached data")
		return
	}
	r.logger.Debug("catalog refreshed")
}
