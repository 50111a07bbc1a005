// Package metrics defines the Prometheus collectors exported by the gallery
// client and an optional HTTP endpoint serving them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Resolution metrics
var (
	ResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gophgallery_resolutions_total",
			Help: "Total number of media resolutions by path and outcome",
		},
		[]string{"path", "outcome"}, // path: "url", "blob"
	)

	ResolutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gophgallery_resolution_duration_seconds",
			Help:    "Media resolution duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"path"},
	)

	StaleResultsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gophgallery_viewer_stale_results_total",
			Help: "Lightbox resolutions discarded because a newer navigation superseded them",
		},
	)
)

// Cache metrics
var (
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gophgallery_cache_lookups_total",
			Help: "Resource cache lookups by result",
		},
		[]string{"result"}, // "hit", "miss", "shared"
	)

	CacheEvictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gophgallery_cache_evictions_total",
			Help: "Resource cache entries evicted or invalidated",
		},
	)

	ObjectURLsLive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gophgallery_object_urls_live",
			Help: "Number of decrypted object handles currently held in memory",
		},
	)
)

// API metrics
var (
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gophgallery_api_requests_total",
			Help: "Backend REST requests by method and status class",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gophgallery_api_request_duration_seconds",
			Help:    "Backend REST request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)
