package handler

import (
	"fmt"
	"net/http"

	"github.com/bookscout/bookscout/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "bookscout_book_lookups_total{result=\"found\"} %d\n", snap.BookLookupsFound)
	writeMetric(w, "bookscout_book_lookups_total{result=\"not_found\"} %d\n", snap.BookLookupsNotFound)
	writeMetric(w, "bookscout_provider_duration_seconds_count %d\n", snap.ProviderDurationCount)
	writeMetric(w, "bookscout_provider_duration_seconds_sum %.6f\n", float64(snap.ProviderDurationTotalNs)/1e9)

	writeMetric(w, "bookscout_searches_recorded_total %d\n", snap.SearchesRecorded)
	writeMetric(w, "bookscout_search_record_failures_total %d\n", snap.SearchRecordFailures)

	writeMetric(w, "bookscout_users_registered_total %d\n", snap.UsersRegistered)
	writeMetric(w, "bookscout_logins_total{result=\"success\"} %d\n", snap.LoginsSucceeded)
	writeMetric(w, "bookscout_logins_total{result=\"failure\"} %d\n", snap.LoginsFailed)

	writeMetric(w, "bookscout_search_events_published_total{status=\"success\"} %d\n", snap.SearchEventsPublished)
	writeMetric(w, "bookscout_search_events_published_total{status=\"dropped\"} %d\n", snap.SearchEventsDropped)
	writeMetric(w, "bookscout_search_events_processed_total{status=\"success\"} %d\n", snap.SearchEventsProcessed)
	writeMetric(w, "bookscout_search_events_processed_total{status=\"failed\"} %d\n", snap.SearchEventsFailed)
	writeMetric(w, "bookscout_search_events_processed_total{status=\"dead_lettered\"} %d\n", snap.SearchEventsDeadLetter)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
