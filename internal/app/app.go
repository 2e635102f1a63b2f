package app

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/amir-mohammad-HP/sugarnexus/internal/job"
	"github.com/amir-mohammad-HP/sugarnexus/internal/market"
	"github.com/amir-mohammad-HP/sugarnexus/internal/scheduler"
	"github.com/amir-mohammad-HP/sugarnexus/internal/server"
	"github.com/amir-mohammad-HP/sugarnexus/internal/signals"
	"github.com/amir-mohammad-HP/sugarnexus/internal/types"
	"github.com/amir-mohammad-HP/sugarnexus/pkg/logger"
	"github.com/amir-mohammad-HP/sugarnexus/pkg/shutdown"
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const projectName = "Sugar Nexus"

// StoreOpener connects to the market database.
type StoreOpener func(ctx context.Context, cfg types.DatabaseConfig, log logger.Logger) (*market.Store, error)

type App struct {
	config        *types.Config
	logger        logger.Logger
	version       string
	openStore     StoreOpener
	registry      *prometheus.Registry
	shutdown      *shutdown.Manager
	signalHandler *signals.Handler

	location *time.Location
	store    *market.Store
	runner   *scheduler.Runner
	etl      *job.ETLJob
	server   *server.Server

	ready     chan struct{}
	readyOnce sync.Once

	// jobsLeftRunning is set when the runner stopped with runs in flight.
	jobsLeftRunning bool
}

// Option customises an App, mainly for tests.
type Option func(*App)

// WithStoreOpener replaces market.Open.
func WithStoreOpener(open StoreOpener) Option {
	return func(a *App) { a.openStore = open }
}

func New(cfg *types.Config, logger logger.Logger, version string, opts ...Option) *App {
	a := &App{
		config:        cfg,
		logger:        logger,
		version:       version,
		openStore:     market.Open,
		registry:      prometheus.NewRegistry(),
		shutdown:      shutdown.NewManager(logger, cfg.Shutdown.Timeout),
		signalHandler: signals.NewHandler(logger),
		ready:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Ready is closed once the daemon is serving.
func (a *App) Ready() <-chan struct{} {
	return a.ready
}

// Stop begins the shutdown sequence, as a signal would.
func (a *App) Stop() {
	a.shutdown.Initiate()
}

// Addr is the HTTP server's bound address once Ready.
func (a *App) Addr() string {
	if a.server == nil {
		return ""
	}
	return a.server.Addr()
}

// Run boots the daemon and blocks until shutdown completes. Boot order:
// database and migrations, runner and job registration, startup
// reconciliation, tick loop, HTTP.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("Starting %s %s", projectName, a.version)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.boot(ctx); err != nil {
		a.closeStore()
		return err
	}

	if err := a.reconcile(ctx); err != nil {
		a.closeStore()
		return err
	}

	if err := a.runner.Start(); err != nil {
		a.closeStore()
		return errors.Wrap(err, "app: start scheduler")
	}

	a.server = server.New(a.config.HTTP, server.Options{
		Jobs:     a.runner,
		JobID:    a.config.Jobs.ETL.ID,
		Market:   a.store,
		Gatherer: a.registry,
		Project:  projectName,
		Version:  a.version,
	}, a.logger)
	if err := a.server.Start(); err != nil {
		_ = a.runner.Stop(ctx)
		a.closeStore()
		return err
	}

	// Shutdown order: stop taking requests, let running jobs finish,
	// release the database, flush logs.
	a.shutdown.RegisterTask("http", a.server.Shutdown)
	a.shutdown.RegisterTask("scheduler", a.stopScheduler)
	a.shutdown.RegisterTask("database", a.releaseDatabase)
	a.shutdown.RegisterTask("logger", func(context.Context) error {
		a.logger.Info("Application shutdown complete")
		if c, ok := a.logger.(io.Closer); ok {
			return c.Close()
		}
		return nil
	})

	go a.signalHandler.Handle(ctx, func() {
		a.logger.Info("Received shutdown signal")
		a.shutdown.Initiate()
	})

	a.readyOnce.Do(func() { close(a.ready) })
	a.logger.WithField("addr", a.server.Addr()).Info("%s is up", projectName)

	// Wait ignores ctx once shutdown has begun; a cancelled parent ctx
	// before that also triggers the ordered shutdown.
	go func() {
		<-ctx.Done()
		a.shutdown.Initiate()
	}()
	return a.shutdown.Wait(context.Background())
}

// boot opens the store, applies migrations and registers the ETL job.
func (a *App) boot(ctx context.Context) error {
	loc, err := scheduler.LoadLocation(a.config.Scheduler.Timezone)
	if err != nil {
		return err
	}
	a.location = loc

	store, err := a.openStore(ctx, a.config.Database, a.logger)
	if err != nil {
		return errors.Wrap(err, "app: open database")
	}
	a.store = store

	applied, err := store.Migrate(ctx)
	if err != nil {
		return errors.Wrap(err, "app: migrate")
	}
	a.logger.WithField("applied", applied).Info("Database schema is up to date")

	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a.runner = scheduler.NewRunner(a.logger,
		scheduler.WithLocation(loc),
		scheduler.WithTickInterval(a.config.Scheduler.TickInterval),
		scheduler.WithExecutor(scheduler.NewPoolExecutor(a.config.Scheduler.MaxConcurrent)),
		scheduler.WithMetrics(scheduler.NewMetrics(a.registry)),
	)

	pipeline := market.NewPipeline(a.config.ETL, store, loc, market.NewMetrics(a.registry))
	a.etl = job.NewETLJob(a.config.Jobs.ETL, pipeline.Run, store, loc)

	if _, err := a.runner.Register(a.etl.Descriptor()); err != nil {
		return errors.Wrap(err, "app: register etl job")
	}
	return nil
}

// reconcile runs the ETL job before startup when the stored data is stale.
// With reconcile_fatal the error aborts startup; otherwise it is logged and
// the daemon serves whatever data it has.
func (a *App) reconcile(ctx context.Context) error {
	jc := a.config.Jobs.ETL
	if !jc.ReconcileOnStartup {
		return nil
	}

	rec, err := a.runner.ReconcileJob(ctx, jc.ID, a.etl.Stale)
	if err == nil {
		if rec.Stale {
			a.logger.WithFields(map[string]any{"summary": rec.Result.Summary}).Info("Startup catch-up completed")
		}
		return nil
	}
	if jc.ReconcileFatal {
		return errors.Wrap(err, "app: startup reconciliation")
	}
	a.logger.WithField("error", err.Error()).Warn("Startup catch-up failed, serving existing data")
	return nil
}

// stopScheduler is a shutdown task. Shutdown tasks run one after another,
// so releaseDatabase sees what it recorded.
func (a *App) stopScheduler(ctx context.Context) error {
	err := a.runner.Stop(ctx)
	a.jobsLeftRunning = err != nil
	return err
}

// releaseDatabase closes the store unless a job may still be writing to it.
func (a *App) releaseDatabase(context.Context) error {
	if a.jobsLeftRunning {
		a.logger.Warn("Jobs still running after the shutdown deadline, leaving the database open")
		return nil
	}
	return a.store.Close()
}

func (a *App) closeStore() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing database: %v", err)
	}
}
