// Package metrics holds the Prometheus collectors of the crawler. They are
// registered with the default registry and served on /metrics.
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

	// JobsProcessedTotal counts finished job attempts by outcome:
	// completed, duplicate, retried, failed, rejected.
	JobsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_jobs_processed_total",
			Help: "Total number of processed crawl job attempts.",
		},
		[]string{"kind", "outcome"},
	)

	ExtractionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crawler_extraction_duration_seconds",
			Help:    "Duration of a job's fetch and extraction.",
			Buckets: []float64{0.5, 1, 5, 10, 15, 30, 60, 120},
		},
		[]string{"domain"},
	)

	ExtractionErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_extraction_errors_total",
			Help: "Extraction failures by error type.",
		},
		[]string{"error_type"},
	)

	// ArticlesPersistedTotal counts store writes: created or existing.
	ArticlesPersistedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_articles_persisted_total",
			Help: "Articles handed to the store.",
		},
		[]string{"result"},
	)

	DiscoveredJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_discovered_jobs_total",
			Help: "URLs surfaced by discovery, by whether a job was created.",
		},
		[]string{"result"},
	)

	PendingJobsFetched = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "crawler_pending_jobs_fetched",
			Help: "Size of the last fetched pending batch.",
		},
	)
)
