// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Auth outcomes reported through IncAuthResult.
const (
	AuthSuccess      = "success"
	AuthMissingToken = "missing_token"
	AuthRejected     = "rejected"
	AuthUnavailable  = "unavailable"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Identity service metrics
	IncAuthResult(result string)
	ObserveAuthDuration(duration time.Duration)

	// Subscription metrics
	IncSubscriptionCreated()
	IncSubscriptionUpdated()
	IncSubscriptionDeleted()
	IncStorageError()

	// Worker pool metrics
	ObserveWorkerWait(duration time.Duration)
	IncWorkerRejected()

	IncRateLimited()
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
