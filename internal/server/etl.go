package server

import (
	"context"
	"net/http"
	"time"

	"github.com/amir-mohammad-HP/sugarnexus/internal/scheduler"
	"github.com/cockroachdb/errors"
)

type statusJSON struct {
	Status          string               `json:"status"`
	JobID           string               `json:"job_id,omitempty"`
	JobName         string               `json:"job_name,omitempty"`
	Enabled         *bool                `json:"enabled,omitempty"`
	NextRunTime     *time.Time           `json:"next_run_time,omitempty"`
	Trigger         string               `json:"trigger,omitempty"`
	Timezone        string               `json:"timezone,omitempty"`
	LastCompletedAt *time.Time           `json:"last_completed_at,omitempty"`
	LastRun         *scheduler.RunRecord `json:"last_run,omitempty"`
}

type triggerErrorJSON struct {
	Error  string              `json:"error"`
	JobID  string              `json:"job_id"`
	Result scheduler.JobResult `json:"result"`
}

func toStatusJSON(st scheduler.JobStatus) statusJSON {
	state := "stopped"
	if st.Running {
		state = "running"
	}
	enabled := st.Enabled
	next := st.NextRunTime
	return statusJSON{
		Status:          state,
		JobID:           st.ID,
		JobName:         st.Name,
		Enabled:         &enabled,
		NextRunTime:     &next,
		Trigger:         st.Description,
		Timezone:        st.Timezone,
		LastCompletedAt: st.LastCompletedAt,
		LastRun:         st.LastRun,
	}
}

// handleTrigger runs the job inline and answers with its result. The run
// is not cancelled when the client goes away; the job's own timeout bounds it.
func (s *Server) handleTrigger() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := s.opts.JobID
		s.logger.WithField("job_id", id).Info("server | manual trigger requested")

		res, err := s.opts.Jobs.TriggerNow(context.WithoutCancel(r.Context()), id)
		if err == nil {
			writeJSON(w, http.StatusOK, res)
			return
		}

		var aerr *scheduler.ActionExecutionError
		switch {
		case errors.Is(err, scheduler.ErrUnknownJob):
			writeError(w, http.StatusNotFound, err)
		case errors.Is(err, scheduler.ErrRunnerStopped):
			writeError(w, http.StatusServiceUnavailable, err)
		case errors.As(err, &aerr):
			writeJSON(w, http.StatusInternalServerError, triggerErrorJSON{
				Error:  aerr.Err.Error(),
				JobID:  aerr.JobID,
				Result: aerr.Result,
			})
		default:
			writeError(w, http.StatusInternalServerError, err)
		}
	}
}

func (s *Server) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := s.opts.Jobs.Status(r.Context(), s.opts.JobID)
		if errors.Is(err, scheduler.ErrUnknownJob) {
			writeJSON(w, http.StatusOK, statusJSON{Status: "not_configured"})
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, toStatusJSON(st))
	}
}

func (s *Server) handleToggle(enable bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := s.opts.JobID
		toggle := s.opts.Jobs.Pause
		if enable {
			toggle = s.opts.Jobs.Resume
		}
		if err := toggle(id); err != nil {
			if errors.Is(err, scheduler.ErrUnknownJob) {
				writeError(w, http.StatusNotFound, err)
				return
			}
			writeError(w, http.StatusInternalServerError, err)
			return
		}

		st, err := s.opts.Jobs.Status(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, toStatusJSON(st))
	}
}
