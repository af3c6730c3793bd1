package reconcile

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reorgsDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ethindex_reorgs_detected_total",
			Help: "Total number of blockchain reorganizations detected",
		},
	)

	reorgLastDetected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ethindex_reorg_last_detected_timestamp",
			Help: "Unix timestamp of last reorg detection",
		},
	)

	reorgBlock = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ethindex_reorg_last_block",
			Help: "Lowest block number of the last detected reorg",
		},
	)

	eventsEnriched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ethindex_events_enriched_total",
			Help: "Total number of events stamped with their block timestamp",
		},
	)
)

func ReorgDetectedLog(blockNum uint64) {
	reorgsDetected.Inc()
	reorgLastDetected.Set(float64(time.Now().UTC().Unix()))
	reorgBlock.Set(float64(blockNum))
}

func EventsEnrichedInc(count int) {
	eventsEnriched.Add(float64(count))
}
