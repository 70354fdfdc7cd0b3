package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsRecordedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "events_recorded_total",
		Help: "Total number of behavioral events persisted",
	}, []string{"event_type"})

	EventsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "events_rejected_total",
		Help: "Total number of events rejected at ingestion",
	}, []string{"reason"})

	EventInsertFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "event_insert_failures_total",
		Help: "Total number of events that failed to insert",
	})

	JobsEnqueuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobs_enqueued_total",
		Help: "Total number of jobs enqueued",
	}, []string{"type"})

	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobs_processed_total",
		Help: "Total number of jobs processed",
	}, []string{"type", "status"})

	JobProcessingLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "job_processing_latency_seconds",
		Help:    "Latency of job processing by type",
		Buckets: prometheus.DefBuckets,
	}, []string{"type"})

	AggregationRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aggregation_runs_total",
		Help: "Total number of daily aggregation runs",
	}, []string{"status"})

	AggregationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "aggregation_duration_seconds",
		Help:    "Duration of daily aggregation runs",
		Buckets: prometheus.DefBuckets,
	})

	ResolverPathTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resolver_path_total",
		Help: "Conversion metric resolutions by computation path",
	}, []string{"source"})

	FeatureCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feature_cache_hits_total",
		Help: "Total number of feature vector cache hits",
	})

	FeatureCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feature_cache_misses_total",
		Help: "Total number of feature vector cache misses",
	})

	FeatureBuildLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "feature_build_latency_seconds",
		Help:    "Latency of feature vector builds",
		Buckets: prometheus.DefBuckets,
	})

	AlertsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_alerts_published_total",
		Help: "Total number of stock alerts published",
	}, []string{"alert_type"})

	AlertsSuppressedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_alerts_suppressed_total",
		Help: "Total number of stock alerts suppressed by cooldown",
	})

	SchedulerRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_runs_total",
		Help: "Recurring task executions by task and status",
	}, []string{"task", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
