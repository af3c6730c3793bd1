package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Database metrics
	dbQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ethindex_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"db", "operation"},
	)

	dbQueryTime = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ethindex_db_query_duration_seconds",
			Help:    "Duration of database queries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"db", "operation"},
	)

	dbErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ethindex_db_errors_total",
			Help: "Total number of database errors",
		},
		[]string{"db", "error_type"},
	)

	// Pipeline metrics
	LogsFetched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ethindex_logs_fetched_total",
			Help: "Total number of raw logs fetched from the node",
		},
	)

	LogsDecoded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ethindex_logs_decoded_total",
			Help: "Total number of fetched logs by decode outcome",
		},
		[]string{"outcome"},
	)

	BlocksStored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ethindex_blocks_stored_total",
			Help: "Total number of block headers handed to storage",
		},
	)

	EventsStored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ethindex_events_stored_total",
			Help: "Total number of decoded events handed to storage",
		},
	)

	LastProcessedBlock = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ethindex_last_processed_block",
			Help: "Upper bound of the last successfully processed block range",
		},
	)

	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ethindex_run_duration_seconds",
			Help:    "Duration of pipeline runs by result",
			Buckets: []float64{1, 5, 15, 30, 60, 300, 900, 3600},
		},
		[]string{"result"},
	)

	// System metrics
	Uptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ethindex_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)

	Errors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ethindex_errors_total",
			Help: "Total number of errors by component and severity",
		},
		[]string{"component", "severity"},
	)

	ComponentHealth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ethindex_component_health",
			Help: "Component health status (1=healthy, 0=unhealthy)",
		},
		[]string{"component"},
	)

	Goroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ethindex_goroutines",
			Help: "Number of active goroutines",
		},
	)

	MemoryUsage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ethindex_memory_usage_bytes",
			Help: "Memory usage statistics",
		},
		[]string{"type"},
	)

	startTime = time.Now()
)

// Decode outcomes used as the "outcome" label of LogsDecoded.
const (
	OutcomeDecoded      = "decoded"
	OutcomeUnrecognized = "unrecognized"
	OutcomeFailed       = "failed"
)

func DBQueryInc(db string, operation string) {
	dbQueries.WithLabelValues(db, operation).Inc()
}

func DBQueryDuration(db string, operation string, duration time.Duration) {
	dbQueryTime.WithLabelValues(db, operation).Observe(duration.Seconds())
}

func DBErrorsInc(db string, errorType string) {
	dbErrors.WithLabelValues(db, errorType).Inc()
}

func LogsFetchedInc(count int) {
	LogsFetched.Add(float64(count))
}

func LogsDecodedInc(outcome string, count int) {
	LogsDecoded.WithLabelValues(outcome).Add(float64(count))
}

func BlocksStoredInc(count int) {
	BlocksStored.Add(float64(count))
}

func EventsStoredInc(count int) {
	EventsStored.Add(float64(count))
}

func LastProcessedBlockSet(blockNum uint64) {
	LastProcessedBlock.Set(float64(blockNum))
}

func RunDurationLog(result string, duration time.Duration) {
	RunDuration.WithLabelValues(result).Observe(duration.Seconds())
}

func ErrorsInc(component, severity string) {
	Errors.WithLabelValues(component, severity).Inc()
}

func ComponentHealthSet(component string, healthy bool) {
	boolAsFloat := float64(1)
	if !healthy {
		boolAsFloat = 0
	}

	ComponentHealth.WithLabelValues(component).Set(boolAsFloat)
}

// UpdateSystemMetrics updates runtime system metrics.
// This should be called periodically (e.g., every 15 seconds).
func UpdateSystemMetrics() {
	Uptime.Set(time.Since(startTime).Seconds())

	Goroutines.Set(float64(runtime.NumGoroutine()))

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	MemoryUsage.WithLabelValues("alloc").Set(float64(m.Alloc))
	MemoryUsage.WithLabelValues("total_alloc").Set(float64(m.TotalAlloc))
	MemoryUsage.WithLabelValues("sys").Set(float64(m.Sys))
	MemoryUsage.WithLabelValues("heap_inuse").Set(float64(m.HeapInuse))
}
