package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CartMetrics records ledger and checkout activity.
type CartMetrics struct {
	mutations       *prometheus.CounterVec
	storageFailures *prometheus.CounterVec
	checkouts       *prometheus.CounterVec
	backendLatency  *prometheus.HistogramVec
}

// NewCartMetrics registers the cart metrics on the provided registerer.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutations_total",
		Help: "Cart ledger mutations by operation.",
	}, []string{"op"})
	storageFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_storage_failures_total",
		Help: "Cart storage read/write failures.",
	}, []string{"op"})
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_orders_total",
		Help: "Checkout submissions by outcome.",
	}, []string{"result"})
	backendLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "backend_request_duration_seconds",
		Help:    "Latency of ticketing backend calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"call"})
	reg.MustRegister(mutations, storageFailures, checkouts, backendLatency)
	return &CartMetrics{
		mutations:       mutations,
		storageFailures: storageFailures,
		checkouts:       checkouts,
		backendLatency:  backendLatency,
	}
}

// IncMutation counts a ledger mutation such as add, remove, update or clear.
func (c *CartMetrics) IncMutation(op string) {
	if c == nil || c.mutations == nil {
		return
	}
	c.mutations.WithLabelValues(normalizeLabel(op)).Inc()
}

// IncStorageFailure counts a failed load or save.
func (c *CartMetrics) IncStorageFailure(op string) {
	if c == nil || c.storageFailures == nil {
		return
	}
	c.storageFailures.WithLabelValues(normalizeLabel(op)).Inc()
}

// IncCheckout counts a checkout submission outcome.
func (c *CartMetrics) IncCheckout(result string) {
	if c == nil || c.checkouts == nil {
		return
	}
	c.checkouts.WithLabelValues(normalizeLabel(result)).Inc()
}

// ObserveBackend records the latency of a backend call.
func (c *CartMetrics) ObserveBackend(call string, duration time.Duration) {
	if c == nil || c.backendLatency == nil {
		return
	}
	c.backendLatency.WithLabelValues(normalizeLabel(call)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
