package scheduler

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
)

var (
	ErrDuplicateJob    = errors.New("scheduler: duplicate job id")
	ErrUnknownJob      = errors.New("scheduler: unknown job id")
	ErrInvalidSchedule = errors.New("scheduler: invalid schedule")
	ErrAlreadyStarted  = errors.New("scheduler: runner already started")
	ErrRunnerStopped   = errors.New("scheduler: runner stopped")
	ErrActionTimeout   = errors.New("scheduler: action timed out")
	ErrActionFailed    = errors.New("scheduler: action reported failure")
)

// ActionExecutionError reports a failed job body.
type ActionExecutionError struct {
	JobID   string
	Trigger Trigger
	At      time.Time
	Result  JobResult
	Err     error
}

func (e *ActionExecutionError) Error() string {
	return fmt.Sprintf("scheduler: job %q (%s) failed at %s: %v",
		e.JobID, e.Trigger, e.At.Format(time.RFC3339), e.Err)
}

func (e *ActionExecutionError) Unwrap() error { return e.Err }
