package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	DiscoveryPagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_pages_total",
			Help: "Search pages requested, by outcome.",
		},
		[]string{"status"}, // success, failure
	)

	ListingsDiscoveredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listings_discovered_total",
			Help: "Listing references emitted by discovery.",
		},
		[]string{"website"},
	)

	DetailExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "detail_extractions_total",
			Help: "Detail page extractions, by outcome.",
		},
		[]string{"status", "error_type"},
	)

	RenderAttemptsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "render_attempts_total",
			Help: "Detail page renders, retries included.",
		},
	)

	RenderDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "render_duration_seconds",
			Help:    "Duration of detail page renders.",
			Buckets: []float64{1, 5, 10, 15, 30, 60, 120},
		},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stage_duration_seconds",
			Help:    "Duration of pipeline stages.",
			Buckets: []float64{1, 10, 60, 300, 900, 1800, 3600, 7200},
		},
		[]string{"stage", "status"},
	)

	StageRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stage_runs_total",
			Help: "Pipeline stage executions, by outcome.",
		},
		[]string{"stage", "status"},
	)

	ListingsPersistedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listings_persisted_total",
			Help: "Documents written, by collection role.",
		},
		[]string{"collection"}, // raw, staging, processed
	)
)
