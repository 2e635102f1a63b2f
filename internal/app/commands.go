package app

import (
	"context"

	"github.com/amir-mohammad-HP/sugarnexus/internal/scheduler"
	"github.com/cockroachdb/errors"
)

// Migrate applies pending schema migrations and exits.
func (a *App) Migrate(ctx context.Context) (int, error) {
	store, err := a.openStore(ctx, a.config.Database, a.logger)
	if err != nil {
		return 0, errors.Wrap(err, "app: open database")
	}
	defer store.Close()
	return store.Migrate(ctx)
}

// RunETLOnce runs the ETL job a single time on the calling goroutine,
// without starting the tick loop or the HTTP server.
func (a *App) RunETLOnce(ctx context.Context) (scheduler.JobResult, error) {
	if err := a.boot(ctx); err != nil {
		a.closeStore()
		return scheduler.JobResult{}, err
	}
	defer a.closeStore()
	defer func() { _ = a.runner.Stop(ctx) }()

	return a.runner.TriggerNow(ctx, a.config.Jobs.ETL.ID)
}
