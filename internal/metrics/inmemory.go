package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	BookLookupsFound        uint64
	BookLookupsNotFound     uint64
	ProviderDurationCount   uint64
	ProviderDurationTotalNs int64
	SearchesRecorded        uint64
	SearchRecordFailures    uint64
	UsersRegistered         uint64
	LoginsSucceeded         uint64
	LoginsFailed            uint64
	SearchEventsPublished   uint64
	SearchEventsDropped     uint64
	SearchEventsProcessed   uint64
	SearchEventsFailed      uint64
	SearchEventsDeadLetter  uint64
}

// InMemoryRecorder stores metrics in memory.
type InMemoryRecorder struct {
	bookLookupsFound        atomic.Uint64
	bookLookupsNotFound     atomic.Uint64
	providerDurationCount   atomic.Uint64
	providerDurationTotalNs atomic.Int64
	searchesRecorded        atomic.Uint64
	searchRecordFailures    atomic.Uint64
	usersRegistered         atomic.Uint64
	loginsSucceeded         atomic.Uint64
	loginsFailed            atomic.Uint64
	searchEventsPublished   atomic.Uint64
	searchEventsDropped     atomic.Uint64
	searchEventsProcessed   atomic.Uint64
	searchEventsFailed      atomic.Uint64
	searchEventsDeadLetter  atomic.Uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		BookLookupsFound:        m.bookLookupsFound.Load(),
		BookLookupsNotFound:     m.bookLookupsNotFound.Load(),
		ProviderDurationCount:   m.providerDurationCount.Load(),
		ProviderDurationTotalNs: m.providerDurationTotalNs.Load(),
		SearchesRecorded:        m.searchesRecorded.Load(),
		SearchRecordFailures:    m.searchRecordFailures.Load(),
		UsersRegistered:         m.usersRegistered.Load(),
		LoginsSucceeded:         m.loginsSucceeded.Load(),
		LoginsFailed:            m.loginsFailed.Load(),
		SearchEventsPublished:   m.searchEventsPublished.Load(),
		SearchEventsDropped:     m.searchEventsDropped.Load(),
		SearchEventsProcessed:   m.searchEventsProcessed.Load(),
		SearchEventsFailed:      m.searchEventsFailed.Load(),
		SearchEventsDeadLetter:  m.searchEventsDeadLetter.Load(),
	}
}

// IncBookLookup counts a lookup by outcome.
func (m *InMemoryRecorder) IncBookLookup(result string) {
	if result == "found" {
		m.bookLookupsFound.Add(1)
		return
	}
	m.bookLookupsNotFound.Add(1)
}

// ObserveProviderDuration records the duration of a provider call.
func (m *InMemoryRecorder) ObserveProviderDuration(duration time.Duration) {
	m.providerDurationCount.Add(1)
	m.providerDurationTotalNs.Add(duration.Nanoseconds())
}

// IncSearchRecorded increments the recorded search counter.
func (m *InMemoryRecorder) IncSearchRecorded() {
	m.searchesRecorded.Add(1)
}

// IncSearchRecordFailed increments the failed record counter.
func (m *InMemoryRecorder) IncSearchRecordFailed() {
	m.searchRecordFailures.Add(1)
}

// IncUserRegistered increments the registration counter.
func (m *InMemoryRecorder) IncUserRegistered() {
	m.usersRegistered.Add(1)
}

// IncLogin counts a login attempt by outcome.
func (m *InMemoryRecorder) IncLogin(result string) {
	if result == "success" {
		m.loginsSucceeded.Add(1)
		return
	}
	m.loginsFailed.Add(1)
}

// IncSearchEventPublished counts a search event by publish status.
func (m *InMemoryRecorder) IncSearchEventPublished(status string) {
	if status == "success" {
		m.searchEventsPublished.Add(1)
		return
	}
	m.searchEventsDropped.Add(1)
}

// IncSearchEventProcessed counts a consumed search event by outcome.
func (m *InMemoryRecorder) IncSearchEventProcessed(status string) {
	switch status {
	case "success":
		m.searchEventsProcessed.Add(1)
	case "dead_lettered":
		m.searchEventsDeadLetter.Add(1)
	default:
		m.searchEventsFailed.Add(1)
	}
}
