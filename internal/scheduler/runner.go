package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/amir-mohammad-HP/sugarnexus/pkg/logger"
	"github.com/cockroachdb/errors"
	"github.com/robfig/cron/v3"
)

type runnerState int

const (
	stateIdle runnerState = iota
	stateStarted
	stateStopped
)

// Option configures a Runner.
type Option func(*Runner)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c Clock) Option {
	return func(r *Runner) { r.clock = c }
}

// WithExecutor sets where tick-triggered runs execute.
func WithExecutor(e Executor) Option {
	return func(r *Runner) { r.executor = e }
}

// WithLocation sets the zone cron expressions are evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(r *Runner) { r.location = loc }
}

// WithTickInterval sets how often the loop checks for due jobs.
func WithTickInterval(d time.Duration) Option {
	return func(r *Runner) { r.tickInterval = d }
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithFailureHook is called for every failed run, whatever triggered it.
// It is the place to plug in alerting.
func WithFailureHook(fn func(*ActionExecutionError)) Option {
	return func(r *Runner) { r.onFailure = fn }
}

// Runner schedules and executes jobs. Create one with NewRunner and pass
// it to whoever owns the process lifecycle.
type Runner struct {
	logger       logger.Logger
	clock        Clock
	executor     Executor
	location     *time.Location
	tickInterval time.Duration
	metrics      *Metrics
	onFailure    func(*ActionExecutionError)

	mu       sync.Mutex
	jobs     map[string]*job
	order    []string
	state    runnerState
	stopCh   chan struct{}
	loopDone chan struct{}

	// inflight counts tick-triggered runs; Stop waits for it.
	inflight sync.WaitGroup
}

// NewRunner creates an idle runner. Without options it uses the wall
// clock, a pool of four workers, UTC and a one second tick.
func NewRunner(log logger.Logger, opts ...Option) *Runner {
	if log == nil {
		log = logger.NewNullLogger()
	}
	r := &Runner{
		logger:       log,
		clock:        SystemClock{},
		location:     time.UTC,
		tickInterval: time.Second,
		jobs:         make(map[string]*job),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.executor == nil {
		r.executor = NewPoolExecutor(4)
	}
	return r
}

// Location returns the zone schedules are evaluated in.
func (r *Runner) Location() *time.Location {
	return r.location
}

// Register adds a job. It becomes eligible at the next matching tick.
func (r *Runner) Register(desc JobDescriptor) (*JobHandle, error) {
	if desc.ID == "" {
		return nil, errors.New("scheduler: job id is required")
	}
	if desc.Action == nil {
		return nil, errors.Newf("scheduler: job %q has no action", desc.ID)
	}
	schedule, err := ParseSchedule(desc.Schedule)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidSchedule, "job %q, expression %q: %v", desc.ID, desc.Schedule, err)
	}
	if desc.Name == "" {
		desc.Name = desc.ID
	}
	// robfig reports an expression with no match in the next five years,
	// such as Feb 30, as a zero time.
	next := r.nextAfter(schedule, r.clock.Now())
	if next.IsZero() {
		return nil, errors.Wrapf(ErrInvalidSchedule, "job %q, expression %q never fires", desc.ID, desc.Schedule)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == stateStopped {
		return nil, ErrRunnerStopped
	}
	if _, exists := r.jobs[desc.ID]; exists {
		return nil, errors.Wrapf(ErrDuplicateJob, "id %q", desc.ID)
	}

	j := &job{
		desc:     desc,
		schedule: schedule,
		enabled:  desc.Enabled,
		next:     next,
	}
	r.jobs[desc.ID] = j
	r.order = append(r.order, desc.ID)

	r.logger.WithFields(map[string]any{
		"job_id":   desc.ID,
		"schedule": desc.Schedule,
		"next_run": j.next.Format(time.RFC3339),
	}).Info("scheduler | job registered")

	return &JobHandle{runner: r, id: desc.ID}, nil
}

// Unregister removes a job. An in-flight run is not interrupted.
func (r *Runner) Unregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[id]; !ok {
		return errors.Wrapf(ErrUnknownJob, "id %q", id)
	}
	delete(r.jobs, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.logger.WithField("job_id", id).Info("scheduler | job unregistered")
	return nil
}

// Start launches the tick loop. Calling it on a started runner is a no-op;
// a stopped runner cannot be restarted.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case stateStarted:
		return nil
	case stateStopped:
		return ErrRunnerStopped
	}

	r.state = stateStarted
	r.stopCh = make(chan struct{})
	r.loopDone = make(chan struct{})
	go r.loop(r.stopCh, r.loopDone)

	r.logger.WithFields(map[string]any{
		"jobs":     len(r.jobs),
		"timezone": r.location.String(),
		"interval": r.tickInterval.String(),
	}).Info("scheduler | runner started")
	return nil
}

// Stop ends the tick loop and waits for in-flight tick-triggered runs;
// ctx only bounds that wait. Runs are never cancelled. Stop may be called
// on a runner that was never started and may be called repeatedly.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if r.state == stateStopped {
		r.mu.Unlock()
		return nil
	}
	wasStarted := r.state == stateStarted
	r.state = stateStopped
	r.mu.Unlock()

	if wasStarted {
		close(r.stopCh)
		<-r.loopDone
	}

	done := make(chan struct{})
	go func() {
		r.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("scheduler | runner stopped")
		return nil
	case <-ctx.Done():
		r.logger.Warn("scheduler | stopped before in-flight jobs finished")
		return errors.Wrap(ctx.Err(), "scheduler: waiting for in-flight jobs")
	}
}

// Running reports whether the tick loop is active.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state == stateStarted
}

// TriggerNow runs the job immediately on the caller's goroutine and
// returns its result. It leaves the schedule untouched and works on
// paused jobs.
func (r *Runner) TriggerNow(ctx context.Context, id string) (JobResult, error) {
	r.mu.Lock()
	if r.state == stateStopped {
		r.mu.Unlock()
		return JobResult{}, ErrRunnerStopped
	}
	j, ok := r.jobs[id]
	r.mu.Unlock()
	if !ok {
		return JobResult{}, errors.Wrapf(ErrUnknownJob, "id %q", id)
	}

	if j.desc.Exclusive {
		j.lock.Lock()
		defer j.lock.Unlock()
	}

	r.logger.WithField("job_id", id).Info("scheduler | manual trigger")
	return r.run(ctx, j, TriggerManual)
}

// Pause stops ticks from running the job. Manual triggers still work.
func (r *Runner) Pause(id string) error {
	return r.setEnabled(id, false)
}

// Resume re-enables a paused job; the next due tick after now runs it.
func (r *Runner) Resume(id string) error {
	return r.setEnabled(id, true)
}

func (r *Runner) setEnabled(id string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok {
		return errors.Wrapf(ErrUnknownJob, "id %q", id)
	}
	if j.enabled == enabled {
		return nil
	}
	j.enabled = enabled
	if enabled {
		j.next = r.nextAfter(j.schedule, r.clock.Now())
	}
	r.logger.WithFields(map[string]any{"job_id": id, "enabled": enabled}).Info("scheduler | job toggled")
	return nil
}

// Status reports the job's state. NextRunTime is derived from the cron
// expression and the current time; it is not a promise.
func (r *Runner) Status(ctx context.Context, id string) (JobStatus, error) {
	r.mu.Lock()
	j, ok := r.jobs[id]
	if !ok {
		r.mu.Unlock()
		return JobStatus{}, errors.Wrapf(ErrUnknownJob, "id %q", id)
	}
	st := JobStatus{
		ID:          j.desc.ID,
		Name:        j.desc.Name,
		Enabled:     j.enabled,
		Running:     r.state == stateStarted,
		Schedule:    j.desc.Schedule,
		Description: Describe(j.desc.Schedule, r.location),
		Timezone:    r.location.String(),
		NextRunTime: r.nextAfter(j.schedule, r.clock.Now()),
	}
	if j.lastRun != nil {
		rec := *j.lastRun
		st.LastRun = &rec
	}
	observe := j.desc.Completion
	r.mu.Unlock()

	if observe != nil {
		at, found, err := observe(ctx)
		switch {
		case err != nil:
			r.logger.WithFields(map[string]any{"job_id": id, "error": err.Error()}).
				Warn("scheduler | could not read last completion")
		case found:
			at = at.In(r.location)
			st.LastCompletedAt = &at
		}
	}
	return st, nil
}

// Reconciliation reports what ReconcileOnStartup did.
type Reconciliation struct {
	Stale  bool      `json:"stale"`
	Result JobResult `json:"result"`
}

// ReconcileOnStartup is a blocking startup gate: when check reports stale
// data, action runs inline and is awaited. It must be called before Start.
// Failures of either the check or the action are returned; whether they
// are fatal is the caller's decision.
func (r *Runner) ReconcileOnStartup(ctx context.Context, check FreshnessCheck, action Action) (Reconciliation, error) {
	if action == nil {
		return Reconciliation{}, errors.New("scheduler: reconcile needs an action")
	}
	return r.reconcile(ctx, &job{desc: JobDescriptor{ID: "startup_reconcile", Action: action}}, check)
}

// ReconcileJob is ReconcileOnStartup using a registered job's action,
// timeout and run bookkeeping.
func (r *Runner) ReconcileJob(ctx context.Context, id string, check FreshnessCheck) (Reconciliation, error) {
	r.mu.Lock()
	j, ok := r.jobs[id]
	r.mu.Unlock()
	if !ok {
		return Reconciliation{}, errors.Wrapf(ErrUnknownJob, "id %q", id)
	}
	return r.reconcile(ctx, j, check)
}

func (r *Runner) reconcile(ctx context.Context, j *job, check FreshnessCheck) (Reconciliation, error) {
	if check == nil {
		return Reconciliation{}, errors.New("scheduler: reconcile needs a freshness check")
	}

	r.mu.Lock()
	state := r.state
	r.mu.Unlock()
	switch state {
	case stateStarted:
		return Reconciliation{}, ErrAlreadyStarted
	case stateStopped:
		return Reconciliation{}, ErrRunnerStopped
	}

	log := r.logger.WithField("job_id", j.desc.ID)

	stale, err := check(ctx)
	if err != nil {
		return Reconciliation{}, errors.Wrap(err, "scheduler: freshness check")
	}
	if !stale {
		log.Info("scheduler | data is fresh, skipping startup run")
		return Reconciliation{}, nil
	}

	log.Warn("scheduler | data is stale, running job before startup")
	res, err := r.run(ctx, j, TriggerReconcile)
	return Reconciliation{Stale: true, Result: res}, err
}

// nextAfter evaluates the schedule in the runner's zone.
func (r *Runner) nextAfter(s cron.Schedule, t time.Time) time.Time {
	return s.Next(t.In(r.location))
}
