package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics tracks order settlement and gateway callback volume.
type CheckoutMetrics struct {
	ordersPlaced *prometheus.CounterVec
	callbacks    *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	ordersPlaced := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Orders settled, labeled by payment method.",
	}, []string{"method"})
	callbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_callbacks_total",
		Help: "Gateway callbacks processed, labeled by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(ordersPlaced, callbacks)
	return &CheckoutMetrics{
		ordersPlaced: ordersPlaced,
		callbacks:    callbacks,
	}
}

// IncOrderPlaced counts a settled order for the given payment method.
func (c *CheckoutMetrics) IncOrderPlaced(method string) {
	if c == nil || c.ordersPlaced == nil {
		return
	}
	c.ordersPlaced.WithLabelValues(normalizeLabel(method)).Inc()
}

// IncCallback counts a processed gateway callback by outcome
// (paid, failed, duplicate, rejected).
func (c *CheckoutMetrics) IncCallback(outcome string) {
	if c == nil || c.callbacks == nil {
		return
	}
	c.callbacks.WithLabelValues(normalizeLabel(outcome)).Inc()
}
