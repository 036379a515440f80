package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics tracks multi-farmer checkout outcomes.
type CheckoutMetrics struct {
	duration prometheus.Histogram
	outcomes *prometheus.CounterVec
	rooms    prometheus.Counter
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "End-to-end checkout duration in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_outcomes_total",
		Help: "Checkout results by outcome (success, partial, failure).",
	}, []string{"outcome"})
	rooms := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_rooms_created_total",
		Help: "Chat rooms created via checkout.",
	})
	reg.MustRegister(duration, outcomes, rooms)
	return &CheckoutMetrics{
		duration: duration,
		outcomes: outcomes,
		rooms:    rooms,
	}
}

// ObserveDuration records how long a checkout attempt took.
func (c *CheckoutMetrics) ObserveDuration(duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.Observe(duration.Seconds())
}

// IncOutcome counts a checkout by its outcome label.
func (c *CheckoutMetrics) IncOutcome(outcome string) {
	if c == nil || c.outcomes == nil {
		return
	}
	c.outcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// AddRoomsCreated counts rooms created during a checkout.
func (c *CheckoutMetrics) AddRoomsCreated(n int) {
	if c == nil || c.rooms == nil || n <= 0 {
		return
	}
	c.rooms.Add(float64(n))
}
