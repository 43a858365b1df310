package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(dbPoolConns, dbTxTotal) }

var (
	dbPoolConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "db_pool_connections",
			Help: "Connections in the Postgres pool by state.",
		},
		[]string{"state"}, // total|idle|in_use
	)

	// result: commit|rollback
	dbTxTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_transactions_total",
			Help: "Transactions run through the transaction manager by result.",
		},
		[]string{"result"},
	)
)

func SetDBPoolStats(total, idle, inUse int32) {
	dbPoolConns.WithLabelValues("total").Set(float64(total))
	dbPoolConns.WithLabelValues("idle").Set(float64(idle))
	dbPoolConns.WithLabelValues("in_use").Set(float64(inUse))
}

func IncTx(result string) { dbTxTotal.WithLabelValues(norm(result)).Inc() }
