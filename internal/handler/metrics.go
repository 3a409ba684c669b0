package handler

import (
	"fmt"
	"net/http"

	"github.com/subkeeper/subkeeper/internal/metrics"
)

// Gauge is a point-in-time value read when /metrics is scraped.
type Gauge struct {
	Name  string
	Value func() float64
}

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
	gauges      []Gauge
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter, gauges ...Gauge) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter, gauges: gauges}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "subkeeper_auth_requests_total{result=\"success\"} %d\n", snap.AuthSuccess)
	writeMetric(w, "subkeeper_auth_requests_total{result=\"missing_token\"} %d\n", snap.AuthMissingToken)
	writeMetric(w, "subkeeper_auth_requests_total{result=\"rejected\"} %d\n", snap.AuthRejected)
	writeMetric(w, "subkeeper_auth_requests_total{result=\"unavailable\"} %d\n", snap.AuthUnavailable)
	writeMetric(w, "subkeeper_auth_duration_seconds_count %d\n", snap.AuthDurationCount)
	writeMetric(w, "subkeeper_auth_duration_seconds_sum %.6f\n", float64(snap.AuthDurationTotalNs)/1e9)

	writeMetric(w, "subkeeper_subscriptions_created_total %d\n", snap.SubscriptionsCreated)
	writeMetric(w, "subkeeper_subscriptions_updated_total %d\n", snap.SubscriptionsUpdated)
	writeMetric(w, "subkeeper_subscriptions_deleted_total %d\n", snap.SubscriptionsDeleted)
	writeMetric(w, "subkeeper_storage_errors_total %d\n", snap.StorageErrors)

	writeMetric(w, "subkeeper_worker_wait_seconds_count %d\n", snap.WorkerWaitCount)
	writeMetric(w, "subkeeper_worker_wait_seconds_sum %.6f\n", float64(snap.WorkerWaitTotalNs)/1e9)
	writeMetric(w, "subkeeper_worker_rejected_total %d\n", snap.WorkerRejected)

	writeMetric(w, "subkeeper_rate_limited_total %d\n", snap.RateLimited)

	for _, g := range h.gauges {
		writeMetric(w, "%s %g\n", g.Name, g.Value())
	}
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
