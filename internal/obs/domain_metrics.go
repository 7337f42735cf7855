package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// TokenizationTotal counts tokenization attempts by method and outcome.
	TokenizationTotal *prometheus.CounterVec
	// PaymentTotal counts payment lifecycle outcomes by method and result.
	PaymentTotal *prometheus.CounterVec
	// PollingAttemptsTotal counts status-poll requests by outcome.
	PollingAttemptsTotal *prometheus.CounterVec
	// PollingDuration records end-to-end polling wait in milliseconds.
	PollingDuration prometheus.Histogram
	// FlowDuration records flow start-to-terminal latency in milliseconds.
	FlowDuration *prometheus.HistogramVec
)

// MustRegisterDomainMetrics initialises and registers the SDK's Prometheus
// collectors. Safe to call more than once; registration happens once.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		TokenizationTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokenization_total",
			Help:      "Count of tokenization attempts by payment method and outcome.",
		}, []string{"method", "result"})
		PaymentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_total",
			Help:      "Count of payment flow outcomes by payment method and result.",
		}, []string{"method", "result"})
		PollingAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polling_attempts_total",
			Help:      "Count of status poll requests by outcome.",
		}, []string{"result"})
		PollingDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "polling_duration_ms",
			Help:      "End-to-end polling wait in milliseconds.",
			Buckets:   []float64{250, 500, 1000, 2500, 5000, 10000, 30000, 60000, 180000},
		})
		FlowDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "flow_duration_ms",
			Help:      "Payment flow start-to-terminal latency in milliseconds.",
			Buckets:   []float64{100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
		}, []string{"method", "result"})
		reg.MustRegister(TokenizationTotal, PaymentTotal, PollingAttemptsTotal, PollingDuration, FlowDuration)
	})
}

// CountTokenization is a nil-safe helper for TokenizationTotal.
func CountTokenization(method, result string) {
	if TokenizationTotal != nil {
		TokenizationTotal.WithLabelValues(method, result).Inc()
	}
}

// CountPayment is a nil-safe helper for PaymentTotal.
func CountPayment(method, result string) {
	if PaymentTotal != nil {
		PaymentTotal.WithLabelValues(method, result).Inc()
	}
}

// ObserveFlowDuration is a nil-safe helper for FlowDuration.
func ObserveFlowDuration(method, result string, ms float64) {
	if FlowDuration != nil {
		FlowDuration.WithLabelValues(method, result).Observe(ms)
	}
}

// CountPollAttempt is a nil-safe helper for PollingAttemptsTotal.
func CountPollAttempt(result string) {
	if PollingAttemptsTotal != nil {
		PollingAttemptsTotal.WithLabelValues(result).Inc()
	}
}
