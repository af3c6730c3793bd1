package db

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	walCheckpoints = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ethindex_wal_checkpoint_total",
			Help: "Total number of WAL checkpoint operations",
		},
		[]string{"mode"},
	)

	optimizeRuns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ethindex_sqlite_optimize_total",
			Help: "Total number of PRAGMA optimize runs",
		},
	)

	dbSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ethindex_db_size_bytes",
			Help: "Database file size in bytes",
		},
		[]string{"type"},
	)
)

func WALCheckpointInc(mode string) {
	walCheckpoints.WithLabelValues(mode).Inc()
}

func OptimizeRunsInc() {
	optimizeRuns.Inc()
}

func DBSizeLog(sizeBytes int64) {
	dbSize.WithLabelValues("total").Set(float64(sizeBytes))
}
