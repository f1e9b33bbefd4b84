package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

type RepositoryMetrics struct {
	CallsTotal   *prometheus.CounterVec
	CallDuration *prometheus.HistogramVec
}

// NewRepositoryMetrics registers repository metrics in reg
func NewRepositoryMetrics(reg prometheus.Registerer) *RepositoryMetrics {
	factory := promauto.With(reg)
	return &RepositoryMetrics{
		CallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "customers_repository_calls_total",
				Help: "Total number of customer repository calls.",
			},
			[]string{"operation", "outcome"},
		),
		CallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "customers_repository_call_duration_seconds",
				Help:    "Histogram of customer repository call latencies.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"operation"},
		),
	}
}

func (m *RepositoryMetrics) RecordCall(operation, outcome string, duration time.Duration) {
	m.CallsTotal.WithLabelValues(operation, outcome).Inc()
	m.CallDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
