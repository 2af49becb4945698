// Package metrics defines the Prometheus collectors for the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signvault_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "signvault_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "signvault_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Upload pipeline metrics
var (
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signvault_uploads_total",
			Help: "Total number of clip submissions by result code",
		},
		[]string{"result"}, // "success", "invalid_input", "decode_error", "storage_failure"
	)

	UploadBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "signvault_upload_bytes",
			Help:    "Decoded size of accepted clips in bytes",
			Buckets: prometheus.ExponentialBuckets(64<<10, 2, 12), // 64KiB .. 128MiB
		},
	)

	UploadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "signvault_upload_duration_seconds",
			Help:    "Time from submission to all three effects completing",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	BlobRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "signvault_blob_write_retries_total",
			Help: "Blob writes that failed once and were retried",
		},
	)
)

// Lookup metrics
var (
	LookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signvault_lookups_total",
			Help: "Total number of sign lookups by result code",
		},
		[]string{"result"}, // "success", "not_found", "invalid_input", "storage_failure"
	)

	ClipCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "signvault_clip_cache_hits_total",
			Help: "Clip cache hits during lookup",
		},
	)

	ClipCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "signvault_clip_cache_misses_total",
			Help: "Clip cache misses during lookup",
		},
	)
)

// Acceleration stream metrics
var (
	SamplesPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "signvault_acceleration_samples_published_total",
			Help: "Acceleration samples accepted by the broadcast channel",
		},
	)

	StreamConsumers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "signvault_acceleration_consumers",
			Help: "Consumers currently streaming acceleration samples",
		},
	)

	SlowConsumerDisconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "signvault_acceleration_slow_consumer_disconnects_total",
			Help: "Consumers dropped because their outbound queue filled up",
		},
	)
)
