package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "switchwatch_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "switchwatch_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Probe Metrics
	ProbesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "switchwatch_probes_total",
			Help: "Total number of stats probes by outcome",
		},
		[]string{"server", "decision"},
	)

	ProbeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "switchwatch_probe_duration_seconds",
			Help:    "Stats probe round-trip duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"server"},
	)

	StreamBitrateKbps = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "switchwatch_stream_bitrate_kbps",
			Help: "Last observed video bitrate in kbps",
		},
		[]string{"server"},
	)

	// Switch Metrics
	SwitchEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "switchwatch_switch_events_total",
			Help: "Total number of confirmed decision transitions",
		},
		[]string{"server", "decision"},
	)

	MonitoredServers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "switchwatch_monitored_servers",
			Help: "Number of stream servers currently being polled",
		},
	)

	// Webhook Metrics
	WebhookDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "switchwatch_webhook_deliveries_total",
			Help: "Total number of webhook delivery attempts",
		},
		[]string{"status"},
	)

	// Queue Metrics
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "switchwatch_events_published_total",
			Help: "Total number of switch events published to the bus",
		},
		[]string{"status"},
	)

	// Cache Metrics
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "switchwatch_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "switchwatch_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	// Database Metrics
	DatabaseOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "switchwatch_database_operations_total",
			Help: "Total number of database operations",
		},
		[]string{"operation", "status"},
	)

	DatabaseOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "switchwatch_database_operation_duration_seconds",
			Help:    "Database operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Error Metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "switchwatch_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)
)

// RecordHTTPRequest records an HTTP request
func RecordHTTPRequest(method, endpoint, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordProbe records one probe cycle
func RecordProbe(server, decision string, duration float64, bitrateKbps int64) {
	ProbesTotal.WithLabelValues(server, decision).Inc()
	ProbeDuration.WithLabelValues(server).Observe(duration)
	StreamBitrateKbps.WithLabelValues(server).Set(float64(bitrateKbps))
}

// RecordSwitchEvent records a confirmed decision transition
func RecordSwitchEvent(server, decision string) {
	SwitchEventsTotal.WithLabelValues(server, decision).Inc()
}

// UpdateMonitoredServers updates the polled server gauge
func UpdateMonitoredServers(count int) {
	MonitoredServers.Set(float64(count))
}

// RecordWebhookDelivery records a webhook delivery attempt
func RecordWebhookDelivery(status string) {
	WebhookDeliveriesTotal.WithLabelValues(status).Inc()
}

// RecordEventPublished records a switch event publish attempt
func RecordEventPublished(status string) {
	EventsPublishedTotal.WithLabelValues(status).Inc()
}

// RecordCacheAccess records cache hit or miss
func RecordCacheAccess(cacheType string, hit bool) {
	if hit {
		CacheHitsTotal.WithLabelValues(cacheType).Inc()
	} else {
		CacheMissesTotal.WithLabelValues(cacheType).Inc()
	}
}

// RecordDatabaseOperation records a database operation
func RecordDatabaseOperation(operation, status string, duration float64) {
	DatabaseOperationsTotal.WithLabelValues(operation, status).Inc()
	DatabaseOperationDuration.WithLabelValues(operation).Observe(duration)
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
