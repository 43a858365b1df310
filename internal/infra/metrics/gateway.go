package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(gatewayRequests, gatewayDuration) }

var (
	// op: create|confirm|status
	// result: ok|http_error|transport_error|bad_body
	gatewayRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Outbound payment gateway calls by operation and result.",
		},
		[]string{"op", "result"},
	)

	gatewayDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "Latency of outbound payment gateway calls in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"op"},
	)
)

func ObserveGatewayCall(op, result string, d time.Duration) {
	gatewayRequests.WithLabelValues(norm(op), norm(result)).Inc()
	gatewayDuration.WithLabelValues(norm(op)).Observe(d.Seconds())
}
