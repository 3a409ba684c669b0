package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	AuthSuccess          uint64
	AuthMissingToken     uint64
	AuthRejected         uint64
	AuthUnavailable      uint64
	AuthDurationCount    uint64
	AuthDurationTotalNs  int64
	SubscriptionsCreated uint64
	SubscriptionsUpdated uint64
	SubscriptionsDeleted uint64
	StorageErrors        uint64
	WorkerWaitCount      uint64
	WorkerWaitTotalNs    int64
	WorkerRejected       uint64
	RateLimited          uint64
}

// InMemoryRecorder keeps counters in memory. It backs the /metrics endpoint
// and test assertions.
type InMemoryRecorder struct {
	authSuccess          atomic.Uint64
	authMissingToken     atomic.Uint64
	authRejected         atomic.Uint64
	authUnavailable      atomic.Uint64
	authDurationCount    atomic.Uint64
	authDurationTotalNs  atomic.Int64
	subscriptionsCreated atomic.Uint64
	subscriptionsUpdated atomic.Uint64
	subscriptionsDeleted atomic.Uint64
	storageErrors        atomic.Uint64
	workerWaitCount      atomic.Uint64
	workerWaitTotalNs    atomic.Int64
	workerRejected       atomic.Uint64
	rateLimited          atomic.Uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		AuthSuccess:          m.authSuccess.Load(),
		AuthMissingToken:     m.authMissingToken.Load(),
		AuthRejected:         m.authRejected.Load(),
		AuthUnavailable:      m.authUnavailable.Load(),
		AuthDurationCount:    m.authDurationCount.Load(),
		AuthDurationTotalNs:  m.authDurationTotalNs.Load(),
		SubscriptionsCreated: m.subscriptionsCreated.Load(),
		SubscriptionsUpdated: m.subscriptionsUpdated.Load(),
		SubscriptionsDeleted: m.subscriptionsDeleted.Load(),
		StorageErrors:        m.storageErrors.Load(),
		WorkerWaitCount:      m.workerWaitCount.Load(),
		WorkerWaitTotalNs:    m.workerWaitTotalNs.Load(),
		WorkerRejected:       m.workerRejected.Load(),
		RateLimited:          m.rateLimited.Load(),
	}
}

// IncAuthResult counts a verification outcome. Unknown results are ignored.
func (m *InMemoryRecorder) IncAuthResult(result string) {
	switch result {
	case AuthSuccess:
		m.authSuccess.Add(1)
	case AuthMissingToken:
		m.authMissingToken.Add(1)
	case AuthRejected:
		m.authRejected.Add(1)
	case AuthUnavailable:
		m.authUnavailable.Add(1)
	}
}

// ObserveAuthDuration records the time spent verifying a token.
func (m *InMemoryRecorder) ObserveAuthDuration(duration time.Duration) {
	m.authDurationCount.Add(1)
	m.authDurationTotalNs.Add(duration.Nanoseconds())
}

// IncSubscriptionCreated increments subscription created counter.
func (m *InMemoryRecorder) IncSubscriptionCreated() {
	m.subscriptionsCreated.Add(1)
}

// IncSubscriptionUpdated increments subscription updated counter.
func (m *InMemoryRecorder) IncSubscriptionUpdated() {
	m.subscriptionsUpdated.Add(1)
}

// IncSubscriptionDeleted increments subscription deleted counter.
func (m *InMemoryRecorder) IncSubscriptionDeleted() {
	m.subscriptionsDeleted.Add(1)
}

// IncStorageError counts failed data-access calls.
func (m *InMemoryRecorder) IncStorageError() {
	m.storageErrors.Add(1)
}

// ObserveWorkerWait records how long a task queued for a worker slot.
func (m *InMemoryRecorder) ObserveWorkerWait(duration time.Duration) {
	m.workerWaitCount.Add(1)
	m.workerWaitTotalNs.Add(duration.Nanoseconds())
}

// IncWorkerRejected counts tasks turned away by a saturated pool.
func (m *InMemoryRecorder) IncWorkerRejected() {
	m.workerRejected.Add(1)
}

// IncRateLimited counts requests answered with 429.
func (m *InMemoryRecorder) IncRateLimited() {
	m.rateLimited.Add(1)
}
