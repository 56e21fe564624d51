package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coach_http_requests_total",
			Help: "Total number of HTTP requests processed, labeled by method, path, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coach_http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	ScanRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coach_scan_requests_total",
			Help: "Total number of scan requests per engine (guard, pii, ioc).",
		},
		[]string{"engine"},
	)

	ThreatsDetectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coach_threats_detected_total",
			Help: "Total number of prompt threats detected, by category and severity.",
		},
		[]string{"category", "severity"},
	)

	PIIMatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coach_pii_matches_total",
			Help: "Total number of PII values detected, by type.",
		},
		[]string{"type"},
	)

	IndicatorHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coach_indicator_hits_total",
			Help: "Total number of indicator-of-compromise hits, by indicator type.",
		},
		[]string{"type"},
	)

	EnforcementTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coach_enforcement_total",
			Help: "Total number of enforcement decisions, by outcome.",
		},
		[]string{"outcome"},
	)

	AuditQueueLength = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "coach_audit_queue_length",
			Help: "Current number of audit entries queued in Redis for persistence.",
		},
	)
)

// Register registers all application metrics with the default Prometheus registry.
func Register() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(ScanRequestsTotal)
	prometheus.MustRegister(ThreatsDetectedTotal)
	prometheus.MustRegister(PIIMatchesTotal)
	prometheus.MustRegister(IndicatorHitsTotal)
	prometheus.MustRegister(EnforcementTotal)
	prometheus.MustRegister(AuditQueueLength)
}
