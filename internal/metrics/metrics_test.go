package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordHTTPRequest(t *testing.T) {
	// Reset metrics
	HTTPRequestsTotal.Reset()
	HTTPRequestDuration.Reset()

	RecordHTTPRequest("GET", "/api/v1/servers", "200", 0.123)

	// Verify counter incremented
	counter := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/servers", "200"))
	if counter != 1.0 {
		t.Errorf("Expected counter to be 1.0, got %f", counter)
	}
}

func TestRecordProbe(t *testing.T) {
	ProbesTotal.Reset()
	ProbeDuration.Reset()
	StreamBitrateKbps.Reset()

	RecordProbe("srv-1", "normal", 0.05, 4500)
	RecordProbe("srv-1", "normal", 0.04, 4700)
	RecordProbe("srv-1", "offline", 0.03, 0)

	normal := testutil.ToFloat64(ProbesTotal.WithLabelValues("srv-1", "normal"))
	if normal != 2.0 {
		t.Errorf("Expected normal probe counter to be 2.0, got %f", normal)
	}

	offline := testutil.ToFloat64(ProbesTotal.WithLabelValues("srv-1", "offline"))
	if offline != 1.0 {
		t.Errorf("Expected offline probe counter to be 1.0, got %f", offline)
	}

	// Gauge holds the latest sample
	bitrate := testutil.ToFloat64(StreamBitrateKbps.WithLabelValues("srv-1"))
	if bitrate != 0.0 {
		t.Errorf("Expected bitrate gauge to be 0.0, got %f", bitrate)
	}
}

func TestRecordSwitchEvent(t *testing.T) {
	SwitchEventsTotal.Reset()

	RecordSwitchEvent("srv-1", "offline")
	RecordSwitchEvent("srv-1", "offline")
	RecordSwitchEvent("srv-1", "normal")

	offline := testutil.ToFloat64(SwitchEventsTotal.WithLabelValues("srv-1", "offline"))
	if offline != 2.0 {
		t.Errorf("Expected offline switch counter to be 2.0, got %f", offline)
	}
}

func TestUpdateMonitoredServers(t *testing.T) {
	UpdateMonitoredServers(4)

	count := testutil.ToFloat64(MonitoredServers)
	if count != 4.0 {
		t.Errorf("Expected monitored servers to be 4.0, got %f", count)
	}
}

func TestRecordWebhookDelivery(t *testing.T) {
	WebhookDeliveriesTotal.Reset()

	RecordWebhookDelivery("delivered")
	RecordWebhookDelivery("failed")
	RecordWebhookDelivery("delivered")

	delivered := testutil.ToFloat64(WebhookDeliveriesTotal.WithLabelValues("delivered"))
	if delivered != 2.0 {
		t.Errorf("Expected delivered counter to be 2.0, got %f", delivered)
	}
}

func TestRecordCacheAccess(t *testing.T) {
	CacheHitsTotal.Reset()
	CacheMissesTotal.Reset()

	RecordCacheAccess("health", true)
	RecordCacheAccess("health", true)
	RecordCacheAccess("health", false)

	hits := testutil.ToFloat64(CacheHitsTotal.WithLabelValues("health"))
	if hits != 2.0 {
		t.Errorf("Expected cache hits to be 2.0, got %f", hits)
	}

	misses := testutil.ToFloat64(CacheMissesTotal.WithLabelValues("health"))
	if misses != 1.0 {
		t.Errorf("Expected cache misses to be 1.0, got %f", misses)
	}
}

func TestRecordDatabaseOperation(t *testing.T) {
	DatabaseOperationsTotal.Reset()

	RecordDatabaseOperation("select", "success", 0.05)
	RecordDatabaseOperation("insert", "error", 0.02)

	success := testutil.ToFloat64(DatabaseOperationsTotal.WithLabelValues("select", "success"))
	if success != 1.0 {
		t.Errorf("Expected select success counter to be 1.0, got %f", success)
	}

	failure := testutil.ToFloat64(DatabaseOperationsTotal.WithLabelValues("insert", "error"))
	if failure != 1.0 {
		t.Errorf("Expected insert error counter to be 1.0, got %f", failure)
	}
}

func TestRecordError(t *testing.T) {
	ErrorsTotal.Reset()

	RecordError("monitor", "probe")
	RecordError("api", "validation")
	RecordError("monitor", "probe")

	monitorErrors := testutil.ToFloat64(ErrorsTotal.WithLabelValues("monitor", "probe"))
	if monitorErrors != 2.0 {
		t.Errorf("Expected monitor probe errors to be 2.0, got %f", monitorErrors)
	}
}

func BenchmarkRecordProbe(b *testing.B) {
	for i := 0; i < b.N; i++ {
		RecordProbe("srv-1", "normal", 0.05, 4500)
	}
}
