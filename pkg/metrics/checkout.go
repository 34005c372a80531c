package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records checkout attempts and the latency of calls to the
// sale backend.
type CheckoutMetrics struct {
	attempts    *prometheus.CounterVec
	completions prometheus.Counter
	failures    prometheus.Counter
	saleLatency *prometheus.HistogramVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided
// registerer. A nil registerer yields a no-op collector, which keeps tests
// and tools free of global registry state.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_attempts_total",
		Help: "Checkout attempts by payment method.",
	}, []string{"method"})
	completions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_completions_total",
		Help: "Checkouts that reached the completed state.",
	})
	failures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_failures_total",
		Help: "Checkouts that reached the failed state.",
	})
	saleLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sale_request_duration_seconds",
		Help:    "Duration of sale backend requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	reg.MustRegister(attempts, completions, failures, saleLatency)
	return &CheckoutMetrics{
		attempts:    attempts,
		completions: completions,
		failures:    failures,
		saleLatency: saleLatency,
	}
}

// IncAttempt counts a checkout attempt for the payment method.
func (m *CheckoutMetrics) IncAttempt(method string) {
	if m == nil || m.attempts == nil {
		return
	}
	if method == "" {
		method = "unknown"
	}
	m.attempts.WithLabelValues(method).Inc()
}

// IncCompletion counts a completed checkout.
func (m *CheckoutMetrics) IncCompletion() {
	if m == nil || m.completions == nil {
		return
	}
	m.completions.Inc()
}

// IncFailure counts a failed checkout.
func (m *CheckoutMetrics) IncFailure() {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.Inc()
}

// ObserveSaleRequest records the latency of one sale backend call.
func (m *CheckoutMetrics) ObserveSaleRequest(operation string, duration time.Duration) {
	if m == nil || m.saleLatency == nil {
		return
	}
	m.saleLatency.WithLabelValues(operation).Observe(duration.Seconds())
}
