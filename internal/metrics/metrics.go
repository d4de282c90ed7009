// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Book lookup metrics
	IncBookLookup(result string) // result: "found" or "not_found"
	ObserveProviderDuration(duration time.Duration)

	// Search history metrics
	IncSearchRecorded()
	IncSearchRecordFailed()

	// Account metrics
	IncUserRegistered()
	IncLogin(result string) // result: "success" or "failure"

	// Search event pipeline
	IncSearchEventPublished(status string) // status: "success" or "dropped"
	IncSearchEventProcessed(status string) // status: "success", "failed", "dead_lettered"
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
