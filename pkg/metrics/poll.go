package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pdv"

// PollMetrics records polling job runs (grid refresh, bill refresh, session check).
type PollMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
}

// NewPollMetrics registers the poll metrics on the provided registerer.
func NewPollMetrics(reg prometheus.Registerer) *PollMetrics {
	if reg == nil {
		return &PollMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "poll_duration_seconds",
		Help:      "Duration of poll job runs in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"job"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "poll_success_total",
		Help:      "Successful poll job runs.",
	}, []string{"job"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "poll_failure_total",
		Help:      "Failed poll job runs.",
	}, []string{"job"})
	reg.MustRegister(duration, success, failure)
	return &PollMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
	}
}

// ObserveDuration records the duration for the named job.
func (p *PollMetrics) ObserveDuration(job string, duration time.Duration) {
	if p == nil || p.duration == nil {
		return
	}
	p.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

func (p *PollMetrics) IncSuccess(job string) {
	if p == nil || p.success == nil {
		return
	}
	p.success.WithLabelValues(normalizeLabel(job)).Inc()
}

func (p *PollMetrics) IncFailure(job string) {
	if p == nil || p.failure == nil {
		return
	}
	p.failure.WithLabelValues(normalizeLabel(job)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
