// Package metrics exposes Prometheus metrics for the matching service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	OrdersSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ordermatch_orders_submitted_total",
		Help: "Orders accepted by the admission API",
	})

	OrdersRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ordermatch_orders_rejected_total",
		Help: "Orders rejected as invalid before matching",
	})

	MatchSteps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ordermatch_match_steps_total",
		Help: "Individual fill events (one per counter order touched)",
	})

	MatchedQuantity = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ordermatch_matched_quantity_total",
		Help: "Total quantity filled across all matches",
	})
)

// StartMetricsServer serves /metrics on addr in the background.
func StartMetricsServer(addr string) {
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		_ = http.ListenAndServe(addr, nil)
	}()
}
