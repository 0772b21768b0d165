// Package cache implements the process-wide page-data cache. This file
// exposes the Prometheus collectors mirroring the internal counters. Labels
// carry only the page namespace: pages are a small fixed set, so label
// cardinality stays bounded.
package cache

import "github.com/prometheus/client_golang/prometheus"

var (
	// cacheHits counts successful Get operations per page namespace.
	cacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "page_cache_hits_total",
			Help: "Total number of page cache hits.",
		},
		[]string{"page"},
	)

	// cacheMisses counts Get operations that found nothing fresh.
	cacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "page_cache_misses_total",
			Help: "Total number of page cache misses (including lazy TTL expiries).",
		},
		[]string{"page"},
	)

	// cacheInvalidations counts entries removed by explicit invalidation.
	cacheInvalidations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "page_cache_invalidations_total",
			Help: "Total number of explicitly invalidated page cache entries.",
		},
		[]string{"page"},
	)

	// cacheEvictions counts entries evicted by the per-namespace bound.
	cacheEvictions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "page_cache_evictions_total",
			Help: "Total number of page cache entries evicted by the size bound.",
		},
		[]string{"page"},
	)

	// cacheEntries gauges the current entry count per page namespace.
	cacheEntries = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "page_cache_entries",
			Help: "Current number of entries held per page namespace.",
		},
		[]string{"page"},
	)
)

func init() {
	prometheus.MustRegister(cacheHits, cacheMisses, cacheInvalidations, cacheEvictions, cacheEntries)
}
