package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// APIMetrics tracks calls to the ERP backend.
type APIMetrics struct {
	requests *prometheus.CounterVec
	retries  *prometheus.CounterVec
}

func NewAPIMetrics(reg prometheus.Registerer) *APIMetrics {
	if reg == nil {
		return &APIMetrics{}
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_requests_total",
		Help:      "Requests sent to the ERP backend, by method and status code (0 = transport error).",
	}, []string{"method", "status"})
	retries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_retries_total",
		Help:      "Transparent retries, by reason.",
	}, []string{"reason"})
	reg.MustRegister(requests, retries)
	return &APIMetrics{requests: requests, retries: retries}
}

func (a *APIMetrics) ObserveRequest(method string, status int) {
	if a == nil || a.requests == nil {
		return
	}
	a.requests.WithLabelValues(normalizeLabel(method), strconv.Itoa(status)).Inc()
}

func (a *APIMetrics) IncRetry(reason string) {
	if a == nil || a.retries == nil {
		return
	}
	a.retries.WithLabelValues(normalizeLabel(reason)).Inc()
}
