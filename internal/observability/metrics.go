package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	queriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kotae_queries_total",
			Help: "Total number of processed queries by lane and cache outcome.",
		},
		[]string{"lane", "cache"},
	)

	queryDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kotae_query_duration_seconds",
			Help:    "Query processing latency by lane.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"lane"},
	)

	ingestFilesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kotae_ingest_files_total",
			Help: "Total number of ingested files by outcome.",
		},
		[]string{"status"},
	)

	fragmentsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "kotae_fragments_total",
			Help: "Current count of stored document fragments.",
		},
	)

	activeConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "kotae_active_connections",
			Help: "Current count of open target database connections.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		queriesTotal,
		queryDurationSeconds,
		ingestFilesTotal,
		fragmentsTotal,
		activeConnections,
	)
}

func ObserveQuery(lane string, cacheHit bool, elapsed time.Duration) {
	cache := "miss"
	if cacheHit {
		cache = "hit"
	}
	queriesTotal.WithLabelValues(lane, cache).Inc()
	queryDurationSeconds.WithLabelValues(lane).Observe(elapsed.Seconds())
}

func ObserveIngestFile(failed bool) {
	status := "completed"
	if failed {
		status = "error"
	}
	ingestFilesTotal.WithLabelValues(status).Inc()
}

func SetFragmentCount(n int64) {
	if n < 0 {
		n = 0
	}
	fragmentsTotal.Set(float64(n))
}

func SetActiveConnections(n int) {
	if n < 0 {
		n = 0
	}
	activeConnections.Set(float64(n))
}
