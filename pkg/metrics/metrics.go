// Package metrics holds the prometheus collectors of the connector.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	eventsForwarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loyalty_events_forwarded_total",
		Help: "Order events handed to the loyalty service, by result.",
	}, []string{"result"})

	redemptions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loyalty_redemptions_total",
		Help: "Redemption attempts, by result.",
	}, []string{"result"})

	reconciliations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loyalty_reconciliation_items_total",
		Help: "Debits committed remotely without a local coupon.",
	})

	gatewayDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "loyalty_gateway_request_duration_seconds",
		Help:    "Latency of calls to the loyalty service.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "outcome"})
)

func EventForwarded(result string) {
	eventsForwarded.WithLabelValues(result).Inc()
}

func Redemption(result string) {
	redemptions.WithLabelValues(result).Inc()
}

func ReconciliationItem() {
	reconciliations.Inc()
}

func ObserveGatewayRequest(operation, outcome string, d time.Duration) {
	gatewayDuration.WithLabelValues(operation, outcome).Observe(d.Seconds())
}

// Handler serves the default registry, which also carries the gorm pool metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
