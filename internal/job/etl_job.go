// internal/job/etl_job.go
package job

import (
	"context"
	"time"

	"github.com/amir-mohammad-HP/sugarnexus/internal/market"
	"github.com/amir-mohammad-HP/sugarnexus/internal/scheduler"
	"github.com/amir-mohammad-HP/sugarnexus/internal/types"
	"github.com/cockroachdb/errors"
)

// Freshness is the part of the market store the ETL job reads back.
type Freshness interface {
	LatestRecordDate(ctx context.Context) (time.Time, bool, error)
	LatestUpdate(ctx context.Context) (time.Time, bool, error)
}

// ETLJob binds the market pipeline to the runner.
type ETLJob struct {
	cfg      types.JobConfig
	action   scheduler.Action
	store    Freshness
	location *time.Location
	now      func() time.Time
}

func NewETLJob(cfg types.JobConfig, action scheduler.Action, store Freshness, loc *time.Location) *ETLJob {
	return &ETLJob{cfg: cfg, action: action, store: store, location: loc, now: time.Now}
}

// Descriptor is what gets registered with the runner.
func (j *ETLJob) Descriptor() scheduler.JobDescriptor {
	return scheduler.JobDescriptor{
		ID:         j.cfg.ID,
		Name:       j.cfg.Name,
		Schedule:   j.cfg.Schedule,
		Action:     j.action,
		Enabled:    j.cfg.Enabled,
		Timeout:    j.cfg.Timeout,
		Exclusive:  j.cfg.Exclusive,
		Completion: j.LastCompleted,
	}
}

// Stale reports whether the newest stored trading day is before today in
// the job's zone, or whether nothing is stored at all.
func (j *ETLJob) Stale(ctx context.Context) (bool, error) {
	latest, ok, err := j.store.LatestRecordDate(ctx)
	if err != nil {
		return false, errors.Wrap(err, "etl job: read latest record date")
	}
	if !ok {
		return true, nil
	}
	today := market.DateOf(j.now().In(j.location))
	return market.DateOf(latest).Before(today), nil
}

// LastCompleted is the runner's completion observer: the time the store
// was last written.
func (j *ETLJob) LastCompleted(ctx context.Context) (time.Time, bool, error) {
	return j.store.LatestUpdate(ctx)
}
