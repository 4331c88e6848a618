package scheduler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROMETHEUS METRICS
// ══════════════════════════════════════════════════════════════════════════════

// JobMetrics holds the Prometheus collectors for scheduled job executions.
type JobMetrics struct {
	registry *prometheus.Registry

	runsTotal   *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
}

// NewJobMetrics creates and registers the job metrics.
func NewJobMetrics() *JobMetrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &JobMetrics{
		registry: registry,
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_job_runs_total",
			Help: "Scheduled job executions by job name and result.",
		}, []string{"job", "result"}),
		runDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "attendance_job_duration_seconds",
			Help:    "Scheduled job execution time by job name.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
	}
}

// Registry returns the underlying registry for the metrics endpoint.
func (m *JobMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *JobMetrics) observeRun(job string, success bool, duration time.Duration) {
	result := "success"
	if !success {
		result = "failure"
	}
	m.runsTotal.WithLabelValues(job, result).Inc()
	m.runDuration.WithLabelValues(job).Observe(duration.Seconds())
}
