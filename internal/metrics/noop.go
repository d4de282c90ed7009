package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncBookLookup is a no-op.
func (n *NoopRecorder) IncBookLookup(result string) {}

// ObserveProviderDuration is a no-op.
func (n *NoopRecorder) ObserveProviderDuration(duration time.Duration) {}

// IncSearchRecorded is a no-op.
func (n *NoopRecorder) IncSearchRecorded() {}

// IncSearchRecordFailed is a no-op.
func (n *NoopRecorder) IncSearchRecordFailed() {}

// IncUserRegistered is a no-op.
func (n *NoopRecorder) IncUserRegistered() {}

// IncLogin is a no-op.
func (n *NoopRecorder) IncLogin(result string) {}

// IncSearchEventPublished is a no-op.
func (n *NoopRecorder) IncSearchEventPublished(status string) {}

// IncSearchEventProcessed is a no-op.
func (n *NoopRecorder) IncSearchEventProcessed(status string) {}
