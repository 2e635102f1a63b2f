package scheduler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the runner's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	skipped     *prometheus.CounterVec
	lastSuccess *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg when it is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sugarnexus",
			Subsystem: "scheduler",
			Name:      "runs_total",
			Help:      "Job runs by trigger and outcome.",
		}, []string{"job", "trigger", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sugarnexus",
			Subsystem: "scheduler",
			Name:      "run_duration_seconds",
			Help:      "Job run duration.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"job", "trigger"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sugarnexus",
			Subsystem: "scheduler",
			Name:      "skipped_ticks_total",
			Help:      "Due ticks that did not start a run.",
		}, []string{"job", "reason"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "sugarnexus",
			Subsystem: "scheduler",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}, []string{"job"}),
	}
	if reg != nil {
		reg.MustRegister(m.runs, m.duration, m.skipped, m.lastSuccess)
	}
	return m
}

func (m *Metrics) observeRun(jobID string, trigger Trigger, outcome Outcome, took time.Duration, finished time.Time) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(jobID, string(trigger), string(outcome)).Inc()
	m.duration.WithLabelValues(jobID, string(trigger)).Observe(took.Seconds())
	if outcome == StatusSuccess {
		m.lastSuccess.WithLabelValues(jobID).Set(float64(finished.Unix()))
	}
}

func (m *Metrics) skip(jobID, reason string) {
	if m == nil {
		return
	}
	m.skipped.WithLabelValues(jobID, reason).Inc()
}
