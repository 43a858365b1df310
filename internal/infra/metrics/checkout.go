package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		checkoutOutcomes,
		checkoutCommitDuration,
		stockConflicts,
		amountMismatches,
		incidentsTotal,
	)
}

var (
	// status: success|failed|aborted|failed_post_payment
	checkoutOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_outcomes_total",
			Help: "Return callbacks by reported status.",
		},
		[]string{"status"},
	)

	// result: committed|duplicate|failed
	checkoutCommitDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "checkout_commit_duration_seconds",
			Help:    "Duration of the commit unit of work in seconds.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"result"},
	)

	stockConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "inventory_stock_conflicts_total",
			Help: "Commits rolled back because a product had insufficient stock.",
		},
	)

	amountMismatches = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "checkout_amount_mismatch_total",
			Help: "Confirmed gateway amounts that differed from the local purchase total.",
		},
	)

	// kind: failed_post_payment|confirm_unknown
	incidentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconciliation_incidents_total",
			Help: "Incidents recorded for manual reconciliation by kind.",
		},
		[]string{"kind"},
	)
)

func IncCheckoutOutcome(status string) {
	checkoutOutcomes.WithLabelValues(norm(status)).Inc()
}

func ObserveCommit(result string, d time.Duration) {
	checkoutCommitDuration.WithLabelValues(norm(result)).Observe(d.Seconds())
}

func IncStockConflict() { stockConflicts.Inc() }

func IncAmountMismatch() { amountMismatches.Inc() }

func IncIncident(kind string) {
	incidentsTotal.WithLabelValues(norm(kind)).Inc()
}
