package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Trades = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "classtrade",
		Name:      "trades_total",
		Help:      "Trade executions by side and result.",
	}, []string{"side", "result"})

	RankingCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "classtrade",
		Name:      "ranking_cache_total",
		Help:      "Ranking cache lookups by outcome.",
	}, []string{"outcome"})

	RankingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "classtrade",
		Name:      "ranking_compute_seconds",
		Help:      "Time spent loading and computing a class ranking.",
		Buckets:   prometheus.DefBuckets,
	})

	DayChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "classtrade",
		Name:      "day_changes_total",
		Help:      "Class day advances and rewinds.",
	}, []string{"direction"})

	BulkGuests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "classtrade",
		Name:      "bulk_guest_rows_total",
		Help:      "Bulk roster rows by result.",
	}, []string{"result"})
)

// PoolStats is the subset of pgxpool.Stat exported as gauges.
type PoolStats interface {
	AcquiredConns() int32
	IdleConns() int32
	TotalConns() int32
	MaxConns() int32
}

// RegisterPool exports connection pool gauges. stat is called on every scrape.
func RegisterPool(reg prometheus.Registerer, stat func() PoolStats) {
	gauge := func(name, help string, read func(PoolStats) int32) prometheus.GaugeFunc {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "classtrade",
			Subsystem: "db_pool",
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(read(stat())) })
	}
	reg.MustRegister(
		gauge("acquired_conns", "Connections currently in use.", PoolStats.AcquiredConns),
		gauge("idle_conns", "Idle connections.", PoolStats.IdleConns),
		gauge("total_conns", "Open connections.", PoolStats.TotalConns),
		gauge("max_conns", "Configured pool size.", PoolStats.MaxConns),
	)
}
