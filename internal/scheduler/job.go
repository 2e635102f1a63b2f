package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Trigger names what started a run.
type Trigger string

const (
	TriggerTick      Trigger = "tick"
	TriggerManual    Trigger = "manual"
	TriggerReconcile Trigger = "reconcile"
)

// Outcome of a run.
type Outcome string

const (
	StatusSuccess Outcome = "success"
	StatusFailure Outcome = "failure"
)

// JobResult is what an action reports. The runner fills in the
// bookkeeping fields (JobID, Trigger, StartedAt, DurationMs).
type JobResult struct {
	JobID      string         `json:"job_id"`
	Trigger    Trigger        `json:"trigger"`
	Status     Outcome        `json:"status"`
	Summary    map[string]int `json:"summary,omitempty"`
	Detail     string         `json:"detail,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	DurationMs int64          `json:"duration_ms"`
}

// Success builds a successful result with the given counts.
func Success(summary map[string]int) JobResult {
	return JobResult{Status: StatusSuccess, Summary: summary}
}

// Failure builds a failed result. The runner treats it like an error.
func Failure(detail string) JobResult {
	return JobResult{Status: StatusFailure, Detail: detail}
}

// Action is the unit of work a job runs.
type Action func(ctx context.Context) (JobResult, error)

// FreshnessCheck reports whether the data a job maintains is stale.
type FreshnessCheck func(ctx context.Context) (stale bool, err error)

// CompletionObserver reads the last completion time from wherever the job
// records it. ok is false when nothing has completed yet.
type CompletionObserver func(ctx context.Context) (at time.Time, ok bool, err error)

// JobDescriptor is the static definition of a job.
type JobDescriptor struct {
	ID       string
	Name     string
	Schedule string
	Action   Action
	Enabled  bool

	// Timeout bounds a single run; zero means none. Expiry is a failure.
	Timeout time.Duration
	// Exclusive makes manual triggers wait for an in-flight tick run.
	Exclusive bool
	// Completion is optional; it feeds JobStatus.LastCompletedAt.
	Completion CompletionObserver
}

// RunRecord is the runner's in-memory note of the last run it performed.
type RunRecord struct {
	Trigger    Trigger   `json:"trigger"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Status     Outcome   `json:"status"`
	Error      string    `json:"error,omitempty"`
}

// JobStatus is a point-in-time view of a job.
type JobStatus struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Enabled         bool       `json:"enabled"`
	Running         bool       `json:"running"`
	Schedule        string     `json:"schedule"`
	Description     string     `json:"description"`
	Timezone        string     `json:"timezone"`
	NextRunTime     time.Time  `json:"next_run_time"`
	LastCompletedAt *time.Time `json:"last_completed_at,omitempty"`
	LastRun         *RunRecord `json:"last_run,omitempty"`
}

type job struct {
	desc     JobDescriptor
	schedule cron.Schedule
	enabled  bool
	next     time.Time
	lastRun  *RunRecord

	// lock serialises tick-triggered runs (and manual ones when Exclusive).
	lock sync.Mutex
}

// JobHandle is returned by Register and scopes operations to one job.
type JobHandle struct {
	runner *Runner
	id     string
}

func (h *JobHandle) ID() string { return h.id }

func (h *JobHandle) Pause() error { return h.runner.Pause(h.id) }

func (h *JobHandle) Resume() error { return h.runner.Resume(h.id) }

func (h *JobHandle) Status(ctx context.Context) (JobStatus, error) {
	return h.runner.Status(ctx, h.id)
}

func (h *JobHandle) Trigger(ctx context.Context) (JobResult, error) {
	return h.runner.TriggerNow(ctx, h.id)
}

// Cancel unregisters the job.
func (h *JobHandle) Cancel() error { return h.runner.Unregister(h.id) }
