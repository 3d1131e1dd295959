package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	JobStatusSuccess = "success"
	JobStatusFailure = "failure"
	JobStatusSkipped = "skipped"
)

// JobMetrics tracks the analytics pipeline jobs (sync, rollup, archive).
type JobMetrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	rows     *prometheus.CounterVec
	lastRun  *prometheus.GaugeVec
}

// NewJobMetrics registers the job collectors on reg.
func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	m := &JobMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "analytics",
			Name:      "job_runs_total",
			Help:      "Analytics job runs by job and outcome.",
		}, []string{"job", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "storefront",
			Subsystem: "analytics",
			Name:      "job_duration_seconds",
			Help:      "Analytics job wall time.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "analytics",
			Name:      "rows_written_total",
			Help:      "Rows created per analytics table.",
		}, []string{"table"}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "storefront",
			Subsystem: "analytics",
			Name:      "job_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}, []string{"job"}),
	}
	reg.MustRegister(m.runs, m.duration, m.rows, m.lastRun)
	return m
}

// Observe records one run. A nil receiver is a no-op so callers need no guard.
func (m *JobMetrics) Observe(job, status string, started time.Time) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(job, status).Inc()
	m.duration.WithLabelValues(job).Observe(time.Since(started).Seconds())
	if status == JobStatusSuccess {
		m.lastRun.WithLabelValues(job).SetToCurrentTime()
	}
}

func (m *JobMetrics) AddRows(table string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.rows.WithLabelValues(table).Add(float64(n))
}
