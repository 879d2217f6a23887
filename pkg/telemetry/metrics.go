// Package telemetry exposes the Prometheus instruments for the payroll
// engine.
package telemetry

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Metrics exposes Prometheus observability primitives for the RCTI
// engine.
type Metrics struct {
	apiRequests      *prometheus.CounterVec
	apiDuration      *prometheus.HistogramVec
	rctiTransitions  *prometheus.CounterVec
	ledgerApplied    *prometheus.CounterVec
	ledgerConflicts  prometheus.Counter
	invoiceTotal     *prometheus.HistogramVec
	outboundDocument *prometheus.CounterVec
}

// NewMetrics registers and returns the engine's Prometheus metrics.
func NewMetrics() *Metrics {
	apiRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "worklog_api_requests_total",
		Help: "Counts API requests by method, route and status.",
	}, []string{"method", "route", "status"})

	apiDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "worklog_api_duration_seconds",
		Help:    "API request latency per method/route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	rctiTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "worklog_rcti_transitions_total",
		Help: "Invoice status transitions by target status.",
	}, []string{"status"})

	ledgerApplied := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "worklog_deduction_applications_total",
		Help: "Deduction ledger applications by kind.",
	}, []string{"kind"})

	ledgerConflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "worklog_deduction_lock_conflicts_total",
		Help: "Ledger applications skipped after losing the balance race.",
	})

	invoiceTotal := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "worklog_rcti_total_dollars",
		Help:    "Finalised invoice totals.",
		Buckets: []float64{100, 500, 1000, 2000, 5000, 10000},
	}, []string{"gst_status"})

	outboundDocument := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "worklog_outbound_documents_total",
		Help: "PDF renders and email sends by channel and status.",
	}, []string{"channel", "status"})

	prometheus.MustRegister(
		apiRequests,
		apiDuration,
		rctiTransitions,
		ledgerApplied,
		ledgerConflicts,
		invoiceTotal,
		outboundDocument,
	)

	return &Metrics{
		apiRequests:      apiRequests,
		apiDuration:      apiDuration,
		rctiTransitions:  rctiTransitions,
		ledgerApplied:    ledgerApplied,
		ledgerConflicts:  ledgerConflicts,
		invoiceTotal:     invoiceTotal,
		outboundDocument: outboundDocument,
	}
}

// GinMiddleware records request counts and latencies per route.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.apiRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.apiDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) RecordRctiTransition(status string) {
	if m == nil {
		return
	}
	m.rctiTransitions.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordLedgerApplication(kind string) {
	if m == nil {
		return
	}
	m.ledgerApplied.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordLedgerConflict() {
	if m == nil {
		return
	}
	m.ledgerConflicts.Inc()
}

func (m *Metrics) ObserveInvoiceTotal(gstStatus string, total float64) {
	if m == nil {
		return
	}
	m.invoiceTotal.WithLabelValues(gstStatus).Observe(total)
}

func (m *Metrics) RecordOutboundDocument(channel, status string) {
	if m == nil {
		return
	}
	m.outboundDocument.WithLabelValues(channel, status).Inc()
}

var Module = fx.Module("telemetry",
	fx.Provide(NewMetrics),
)
