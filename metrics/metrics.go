// Package metrics is the single source of truth for metric names, labels and
// help strings. All metrics register with the default Prometheus registry at
// package init via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "northcart"

// CheckoutSessionsTotal counts checkout-session creation attempts.
// Labels:
//   - mode: "adhoc" or "price_ref"
//   - result: "ok", "rejected", "upstream_error"
var CheckoutSessionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkout_sessions_total",
		Help:      "Total number of checkout session creation attempts.",
	},
	[]string{"mode", "result"},
)

// WebhookEventsTotal counts payment webhook deliveries.
// Labels:
//   - type: the gateway event type (e.g. "checkout.session.completed")
//   - result: "processed", "duplicate", "invalid_signature", "unknown_customer", "error"
var WebhookEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_events_total",
		Help:      "Total number of payment gateway webhook deliveries, by outcome.",
	},
	[]string{"type", "result"},
)

// OrdersTotal counts order state transitions into each status.
var OrdersTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_total",
		Help:      "Total number of orders entering each status.",
	},
	[]string{"status"},
)

// GatewayRetriesTotal counts retried calls to the payment gateway.
var GatewayRetriesTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gateway_retries_total",
		Help:      "Total number of retried payment gateway calls.",
	},
)
