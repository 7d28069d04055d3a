package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultOK           = "ok"
	resultNoActivation = "no_activation"
	resultRejected     = "rejected"
)

// Metrics are the Prometheus collectors updated by an Engine.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Evaluations  *prometheus.CounterVec
	NoActivation *prometheus.CounterVec
	Duration     prometheus.Histogram
}

// NewMetrics registers the engine collectors with reg.
// Pass prometheus.NewRegistry() in tests to avoid global state.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Evaluations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mamdani",
			Name:      "evaluations_total",
			Help:      "Number of evaluations by result.",
		}, []string{"result"}),
		NoActivation: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mamdani",
			Name:      "no_activation_total",
			Help:      "Number of outputs left without activated rules.",
		}, []string{"output"}),
		Duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mamdani",
			Name:      "evaluation_duration_seconds",
			Help:      "Wall time of a single evaluation.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
	}
}

func (m *Metrics) observe(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.Evaluations.WithLabelValues(result).Inc()
	m.Duration.Observe(d.Seconds())
}

func (m *Metrics) noActivation(output string) {
	if m == nil {
		return
	}
	m.NoActivation.WithLabelValues(output).Inc()
}
