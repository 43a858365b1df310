package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(eventsPublished, alertsSent) }

var (
	// result: ok|error|dropped
	eventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Checkout events handed to the broker by type and result.",
		},
		[]string{"type", "result"},
	)

	// result: sent|error
	alertsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "incident_alerts_total",
			Help: "Operator alerts about reconciliation incidents by delivery result.",
		},
		[]string{"result"},
	)
)

func IncEventPublished(eventType, result string) {
	eventsPublished.WithLabelValues(norm(eventType), norm(result)).Inc()
}

func IncAlert(result string) {
	alertsSent.WithLabelValues(norm(result)).Inc()
}
