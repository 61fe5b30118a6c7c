package metrics

import "github.com/prometheus/client_golang/prometheus"

// BillingMetrics counts bill session outcomes per context kind (counter, table, tab).
type BillingMetrics struct {
	linesSent      *prometheus.CounterVec
	linesFailed    *prometheus.CounterVec
	billsClosed    *prometheus.CounterVec
	fiscalFailures *prometheus.CounterVec
}

func NewBillingMetrics(reg prometheus.Registerer) *BillingMetrics {
	if reg == nil {
		return &BillingMetrics{}
	}
	linesSent := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_lines_sent_total",
		Help:      "Cart lines committed to the backend.",
	}, []string{"context"})
	linesFailed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_lines_failed_total",
		Help:      "Cart lines rejected by the backend.",
	}, []string{"context"})
	billsClosed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bills_closed_total",
		Help:      "Bills closed, by payment method.",
	}, []string{"context", "method"})
	fiscalFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fiscal_failures_total",
		Help:      "Fiscal document generations that failed after a closed bill.",
	}, []string{"context"})
	reg.MustRegister(linesSent, linesFailed, billsClosed, fiscalFailures)
	return &BillingMetrics{
		linesSent:      linesSent,
		linesFailed:    linesFailed,
		billsClosed:    billsClosed,
		fiscalFailures: fiscalFailures,
	}
}

func (b *BillingMetrics) IncLinesSent(context string) {
	if b == nil || b.linesSent == nil {
		return
	}
	b.linesSent.WithLabelValues(normalizeLabel(context)).Inc()
}

func (b *BillingMetrics) IncLinesFailed(context string) {
	if b == nil || b.linesFailed == nil {
		return
	}
	b.linesFailed.WithLabelValues(normalizeLabel(context)).Inc()
}

func (b *BillingMetrics) IncBillsClosed(context, method string) {
	if b == nil || b.billsClosed == nil {
		return
	}
	b.billsClosed.WithLabelValues(normalizeLabel(context), normalizeLabel(method)).Inc()
}

func (b *BillingMetrics) IncFiscalFailures(context string) {
	if b == nil || b.fiscalFailures == nil {
		return
	}
	b.fiscalFailures.WithLabelValues(normalizeLabel(context)).Inc()
}
