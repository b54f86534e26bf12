package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// AlertsCreated counts alerts added to the store.
	AlertsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "openalgo_chart_alerts_created_total",
		Help: "Total number of alerts added to the store.",
	})

	// AlertsRemoved counts alerts removed from the store.
	AlertsRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "openalgo_chart_alerts_removed_total",
		Help: "Total number of alerts removed from the store.",
	})

	// TriggersTotal counts emitted trigger events by condition.
	TriggersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "openalgo_chart_triggers_total",
		Help: "Total number of trigger events emitted by the evaluator.",
	}, []string{"condition"})

	// ToastsShown counts toast notifications shown.
	ToastsShown = promauto.NewCounter(prometheus.CounterOpts{
		Name: "openalgo_chart_toasts_shown_total",
		Help: "Total number of toast notifications shown.",
	})

	// WebhookDeliveries counts webhook delivery attempts by outcome.
	WebhookDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "openalgo_chart_webhook_deliveries_total",
		Help: "Total number of webhook delivery attempts by outcome.",
	}, []string{"outcome"})
)

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
