package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Side-effect outcomes.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Metrics provides observability for sale ingestion and suspicion scoring.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Fact lookup latencies by fact name
	FactLatency *prometheus.HistogramVec

	// Fact lookups that failed and were treated as absent
	FactFailures *prometheus.CounterVec

	// Findings raised by rule and severity
	Findings *prometheus.CounterVec

	// Post-write side effects by task and outcome
	SideEffects *prometheus.CounterVec

	// Sales written by operation
	Sales *prometheus.CounterVec

	// Full suspicion evaluation latency
	EvaluateLatency prometheus.Histogram

	// HTTP requests by method, route template and status
	HTTPRequests *prometheus.CounterVec
	HTTPLatency  *prometheus.HistogramVec
}

// New registers all metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		FactLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "salesguard_suspicion_fact_duration_seconds",
			Help:    "Duration of fact lookups used by suspicion rules",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"fact"}), // fact: "price_history", "avg_quantity", "recent_sales", "worker_activity"

		FactFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "salesguard_suspicion_fact_failures_total",
			Help: "Fact lookups that failed; dependent rules were skipped",
		}, []string{"fact"}),

		Findings: f.NewCounterVec(prometheus.CounterOpts{
			Name: "salesguard_suspicion_findings_total",
			Help: "Suspicion findings raised by rule and severity",
		}, []string{"rule", "severity"}),

		SideEffects: f.NewCounterVec(prometheus.CounterOpts{
			Name: "salesguard_sale_side_effects_total",
			Help: "Post-write side effects by task and outcome",
		}, []string{"task", "outcome"}), // task: "price_stats", "suspicion", "audit"

		Sales: f.NewCounterVec(prometheus.CounterOpts{
			Name: "salesguard_sales_total",
			Help: "Sales written by operation",
		}, []string{"op"}),

		EvaluateLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "salesguard_suspicion_evaluate_duration_seconds",
			Help:    "Duration of a full suspicion evaluation including fact lookups",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "salesguard_http_requests_total",
			Help: "HTTP requests by method, route and status code",
		}, []string{"method", "route", "status"}),

		HTTPLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "salesguard_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// ObserveFactLatency records how long fetching a fact took.
func (m *Metrics) ObserveFactLatency(fact string, d time.Duration) {
	if m != nil {
		m.FactLatency.WithLabelValues(fact).Observe(d.Seconds())
	}
}

// IncrementFactFailure records a failed fact lookup.
func (m *Metrics) IncrementFactFailure(fact string) {
	if m != nil {
		m.FactFailures.WithLabelValues(fact).Inc()
	}
}

// IncrementFinding records a raised finding.
func (m *Metrics) IncrementFinding(rule, severity string) {
	if m != nil {
		m.Findings.WithLabelValues(rule, severity).Inc()
	}
}

// IncrementSideEffect records the outcome of a post-write task.
func (m *Metrics) IncrementSideEffect(task string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeFailed
	}
	m.SideEffects.WithLabelValues(task, outcome).Inc()
}

// IncrementSale records a committed sale write.
func (m *Metrics) IncrementSale(op string) {
	if m != nil {
		m.Sales.WithLabelValues(op).Inc()
	}
}

// ObserveEvaluateLatency records the total evaluation duration.
func (m *Metrics) ObserveEvaluateLatency(d time.Duration) {
	if m != nil {
		m.EvaluateLatency.Observe(d.Seconds())
	}
}

// ObserveHTTPRequest records one served request. route is the gin route
// template, not the raw path.
func (m *Metrics) ObserveHTTPRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPLatency.WithLabelValues(method, route).Observe(d.Seconds())
}
