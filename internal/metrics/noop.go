package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) IncAuthResult(result string)                {}
func (n *NoopRecorder) ObserveAuthDuration(duration time.Duration) {}
func (n *NoopRecorder) IncSubscriptionCreated()                    {}
func (n *NoopRecorder) IncSubscriptionUpdated()                    {}
func (n *NoopRecorder) IncSubscriptionDeleted()                    {}
func (n *NoopRecorder) IncStorageError()                           {}
func (n *NoopRecorder) ObserveWorkerWait(duration time.Duration)   {}
func (n *NoopRecorder) IncWorkerRejected()                         {}
func (n *NoopRecorder) IncRateLimited()                            {}
