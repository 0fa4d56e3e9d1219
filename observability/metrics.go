package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type fundingMetrics struct {
	requests *prometheus.CounterVec
	errors   *prometheus.CounterVec
	deposits prometheus.Counter
	latency  *prometheus.HistogramVec
}

var (
	fundingMetricsOnce sync.Once
	fundingRegistry    *fundingMetrics
)

// FundingMetrics returns the lazily-initialised metrics registry used to
// record funding module activity.
func FundingMetrics() *fundingMetrics {
	fundingMetricsOnce.Do(func() {
		fundingRegistry = &fundingMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "citadel",
				Subsystem: "funding",
				Name:      "requests_total",
				Help:      "Total funding entrypoint invocations segmented by method and outcome.",
			}, []string{"method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "citadel",
				Subsystem: "funding",
				Name:      "errors_total",
				Help:      "Total funding entrypoint failures segmented by method and reason.",
			}, []string{"method", "reason"}),
			deposits: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "citadel",
				Subsystem: "funding",
				Name:      "deposits_total",
				Help:      "Count of completed asset-for-citadel deposits.",
			}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "citadel",
				Subsystem: "funding",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for funding entrypoint handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method"}),
		}
		prometheus.MustRegister(
			fundingRegistry.requests,
			fundingRegistry.errors,
			fundingRegistry.deposits,
			fundingRegistry.latency,
		)
	})
	return fundingRegistry
}

// Observe records the outcome and latency of a funding entrypoint call.
func (m *fundingMetrics) Observe(method, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, outcome).Inc()
	m.latency.WithLabelValues(method).Observe(duration.Seconds())
}

// IncError counts a failed funding entrypoint call by reason tag.
func (m *fundingMetrics) IncError(method, reason string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(method, reason).Inc()
}

// IncDeposit counts a completed deposit.
func (m *fundingMetrics) IncDeposit() {
	if m == nil {
		return
	}
	m.deposits.Inc()
}
