package market

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts pipeline activity. A nil *Metrics records nothing.
type Metrics struct {
	rows         *prometheus.CounterVec
	sourceErrors *prometheus.CounterVec
	fxFallbacks  prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sugarnexus",
			Subsystem: "etl",
			Name:      "rows_total",
			Help:      "Rows written to market_daily by operation.",
		}, []string{"op"}),
		sourceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sugarnexus",
			Subsystem: "etl",
			Name:      "source_errors_total",
			Help:      "Failed fetches per upstream source.",
		}, []string{"source"}),
		fxFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sugarnexus",
			Subsystem: "etl",
			Name:      "fx_fallback_total",
			Help:      "Runs that used the fixed fallback exchange rate.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.rows, m.sourceErrors, m.fxFallbacks)
	}
	return m
}

func (m *Metrics) written(stats UpsertStats) {
	if m == nil {
		return
	}
	m.rows.WithLabelValues("new").Add(float64(stats.New))
	m.rows.WithLabelValues("updated").Add(float64(stats.Updated))
}

func (m *Metrics) sourceFailed(source string) {
	if m == nil {
		return
	}
	m.sourceErrors.WithLabelValues(source).Inc()
}

func (m *Metrics) fxFallback() {
	if m == nil {
		return
	}
	m.fxFallbacks.Inc()
}
