package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Service metrics exposed on /metrics
var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrolpulse_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "enrolpulse_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "enrolpulse_http_requests_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
	)

	// Query metrics
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrolpulse_queries_total",
			Help: "Total number of engine queries by intent",
		},
		[]string{"intent", "status"}, // status: ok/error
	)

	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "enrolpulse_query_duration_seconds",
			Help:    "Engine query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
		},
		[]string{"intent"},
	)

	// Dataset metrics
	DatasetRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "enrolpulse_dataset_records",
			Help: "Number of records in the loaded dataset snapshot",
		},
	)

	DatasetLoadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "enrolpulse_dataset_load_duration_seconds",
			Help:    "Time taken to load the dataset snapshot",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
	)

	// Model metrics
	AnomaliesFlagged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "enrolpulse_anomalies_flagged_total",
			Help: "Total number of dates flagged as anomalous",
		},
	)

	InsufficientData = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrolpulse_insufficient_data_total",
			Help: "Model runs skipped because the series was too short",
		},
		[]string{"model"}, // forecast/anomaly
	)

	// MCP metrics
	MCPToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrolpulse_mcp_tool_calls_total",
			Help: "Total number of MCP tool invocations",
		},
		[]string{"tool", "status"},
	)
)
