package fetcher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	resolvedBlock = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ethindex_resolved_block",
			Help: "The block number a finality tag last resolved to",
		},
		[]string{"tag"},
	)

	rangeSplits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ethindex_log_range_splits_total",
			Help: "Total number of eth_getLogs ranges narrowed after a too many results response",
		},
	)

	blocksFetched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ethindex_blocks_fetched_total",
			Help: "Total number of block headers fetched",
		},
	)
)

func ResolvedBlockSet(tag string, blockNum uint64) {
	resolvedBlock.WithLabelValues(tag).Set(float64(blockNum))
}

func RangeSplitInc() {
	rangeSplits.Inc()
}

func BlocksFetchedInc(count int) {
	blocksFetched.Add(float64(count))
}
