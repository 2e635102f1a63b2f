package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/amir-mohammad-HP/sugarnexus/pkg/logger"
	"github.com/cockroachdb/errors"
)

func (r *Runner) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer r.logger.Debug("scheduler | tick loop stopped")

	ticker := time.NewTicker(r.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.Tick(r.clock.Now())
		}
	}
}

// Tick runs every enabled job that is due at now and returns how many runs
// it started. Each due job's next fire time moves past now, so repeated
// ticks within the same minute start a job once. Paused jobs are skipped
// and their missed fire times are dropped. Ticks after Stop do nothing.
func (r *Runner) Tick(now time.Time) int {
	type dueJob struct {
		j   *job
		due time.Time
	}

	r.mu.Lock()
	if r.state == stateStopped {
		r.mu.Unlock()
		return 0
	}

	var due []dueJob
	for _, id := range r.order {
		j := r.jobs[id]
		if j.next.IsZero() || now.Before(j.next) {
			continue
		}
		fireAt := j.next
		j.next = r.nextAfter(j.schedule, now)

		if !j.enabled {
			r.metrics.skip(id, "paused")
			r.logger.WithField("job_id", id).Debug("scheduler | job paused, skipping tick")
			continue
		}
		if !j.lock.TryLock() {
			r.metrics.skip(id, "overlap")
			r.logger.WithField("job_id", id).Warn("scheduler | job still running, skipping tick")
			continue
		}
		// Counted under mu so Stop cannot miss it.
		r.inflight.Add(1)
		due = append(due, dueJob{j: j, due: fireAt})
	}
	r.mu.Unlock()

	started := 0
	for _, d := range due {
		j := d.j
		accepted := r.executor.Go(func() {
			defer r.inflight.Done()
			defer j.lock.Unlock()
			// Errors are reported inside run; ticks never propagate them.
			_, _ = r.run(context.Background(), j, TriggerTick)
		})
		if !accepted {
			j.lock.Unlock()
			r.inflight.Done()
			r.metrics.skip(j.desc.ID, "saturated")
			r.logger.WithField("job_id", j.desc.ID).Warn("scheduler | executor saturated, skipping tick")
			continue
		}
		r.logger.WithFields(map[string]any{
			"job_id": j.desc.ID,
			"due":    d.due.Format(time.RFC3339),
		}).Debug("scheduler | job dispatched")
		started++
	}
	return started
}

// run executes the job body once and does all the bookkeeping: result
// fields, last-run record, metrics, logging and the failure hook.
func (r *Runner) run(ctx context.Context, j *job, trigger Trigger) (JobResult, error) {
	desc := j.desc
	log := r.logger.WithFields(map[string]any{"job_id": desc.ID, "trigger": string(trigger)})
	ctx = logger.WithLogger(ctx, log)

	if desc.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, desc.Timeout)
		defer cancel()
	}

	started := r.clock.Now()
	res, err := invoke(ctx, desc.Action)
	finished := r.clock.Now()

	if desc.Timeout > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		timeoutErr := errors.Wrapf(ErrActionTimeout, "job %q exceeded %s", desc.ID, desc.Timeout)
		if err != nil {
			timeoutErr = errors.WithSecondaryError(timeoutErr, err)
		}
		err = timeoutErr
	}
	if err == nil && res.Status == StatusFailure {
		err = errors.Wrap(ErrActionFailed, res.Detail)
	}

	res.JobID = desc.ID
	res.Trigger = trigger
	res.StartedAt = started
	res.DurationMs = finished.Sub(started).Milliseconds()
	if err != nil {
		res.Status = StatusFailure
		if res.Detail == "" {
			res.Detail = err.Error()
		}
	} else if res.Status == "" {
		res.Status = StatusSuccess
	}

	rec := &RunRecord{Trigger: trigger, StartedAt: started, FinishedAt: finished, Status: res.Status}
	if err != nil {
		rec.Error = err.Error()
	}
	r.mu.Lock()
	j.lastRun = rec
	r.mu.Unlock()

	r.metrics.observeRun(desc.ID, trigger, res.Status, finished.Sub(started), finished)

	if err != nil {
		aerr := &ActionExecutionError{JobID: desc.ID, Trigger: trigger, At: started, Result: res, Err: err}
		log.WithFields(map[string]any{
			"started_at": started.Format(time.RFC3339),
			"error":      err.Error(),
		}).Error("scheduler | job failed")
		if r.onFailure != nil {
			r.onFailure(aerr)
		}
		return res, aerr
	}

	log.WithFields(map[string]any{
		"duration_ms": res.DurationMs,
		"summary":     res.Summary,
	}).Info("scheduler | job completed")
	return res, nil
}

// invoke turns a panicking action into an error.
func invoke(ctx context.Context, action Action) (res JobResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.Newf("scheduler: action panicked: %s", fmt.Sprint(p))
		}
	}()
	return action(ctx)
}
