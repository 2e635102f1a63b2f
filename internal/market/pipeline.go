package market

import (
	"context"
	"time"

	"github.com/amir-mohammad-HP/sugarnexus/internal/scheduler"
	"github.com/amir-mohammad-HP/sugarnexus/internal/types"
	"github.com/amir-mohammad-HP/sugarnexus/pkg/logger"
	"github.com/cockroachdb/errors"
)

// Writer is the part of Store the pipeline loads into.
type Writer interface {
	Upsert(ctx context.Context, rows []MarketDaily) (UpsertStats, error)
}

// Pipeline is the extract, transform and load run behind the daily job.
type Pipeline struct {
	Sugar   BarSource
	FX      SeriesSource
	BDI     SeriesSource
	Store   Writer
	Metrics *Metrics

	// Location decides what "today" is.
	Location       *time.Location
	FXLookbackDays int
	WindowDays     int
	FallbackFXRate float64

	Now func() time.Time
}

// NewPipeline wires the HTTP sources described by cfg.
func NewPipeline(cfg types.ETLConfig, store Writer, loc *time.Location, m *Metrics) *Pipeline {
	f := NewFetcher(cfg.HTTPTimeout, cfg.RequestsPerSec)
	return &Pipeline{
		Sugar:          NewSinaFutures(f, cfg.SugarURL, cfg.SugarSymbol),
		FX:             NewJSONSeries(f, cfg.FXURL),
		BDI:            NewJSONSeries(f, cfg.BDIURL),
		Store:          store,
		Metrics:        m,
		Location:       loc,
		FXLookbackDays: cfg.FXLookbackDays,
		WindowDays:     cfg.WindowDays,
		FallbackFXRate: cfg.FallbackFXRate,
		Now:            time.Now,
	}
}

// Run executes one ETL pass. It is a scheduler.Action.
func (p *Pipeline) Run(ctx context.Context) (scheduler.JobResult, error) {
	log := logger.FromContext(ctx)
	now := p.Now()
	today := DateOf(now.In(p.Location))
	log.WithField("today", today.Format(DateLayout)).Info("etl | starting run")

	bars, err := p.Sugar.DailyBars(ctx)
	if err != nil {
		p.Metrics.sourceFailed("sugar")
		return scheduler.JobResult{}, errors.Wrap(err, "etl: extract sugar futures")
	}

	from := today.AddDate(0, 0, -p.FXLookbackDays)
	fx, err := p.FX.Series(ctx, from, today)
	if err != nil {
		p.Metrics.sourceFailed("fx")
		p.Metrics.fxFallback()
		log.WithFields(map[string]any{
			"error": err.Error(),
			"rate":  p.FallbackFXRate,
		}).Warn("etl | fx source failed, using fixed rate")
		fx = FixedRate(today, p.FXLookbackDays, p.FallbackFXRate)
	}

	bdi, err := p.BDI.Series(ctx, today.AddDate(0, 0, -p.WindowDays), today)
	if err != nil {
		p.Metrics.sourceFailed("bdi")
		return scheduler.JobResult{}, errors.Wrap(err, "etl: extract baltic dry index")
	}

	rows := Transform(Inputs{Sugar: bars, FX: fx, BDI: bdi}, today, p.WindowDays, now)
	log.WithFields(map[string]any{
		"bars": len(bars),
		"fx":   len(fx),
		"bdi":  len(bdi),
		"rows": len(rows),
	}).Info("etl | transformed")

	stats, err := p.Store.Upsert(ctx, rows)
	if err != nil {
		return scheduler.JobResult{}, errors.Wrap(err, "etl: load")
	}
	p.Metrics.written(stats)

	return scheduler.Success(map[string]int{
		"new":     stats.New,
		"updated": stats.Updated,
		"fetched": len(bars),
	}), nil
}
