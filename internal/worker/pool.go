// Package worker bounds how much blocking work runs at once.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/subkeeper/subkeeper/internal/metrics"
)

// Pool defaults.
const (
	DefaultSize         = 15
	DefaultQueueTimeout = 2 * time.Second
)

// ErrSaturated is returned when no slot frees up within the queue timeout.
var ErrSaturated = errors.New("worker pool saturated")

// Pool admits at most size concurrent tasks. Callers past the limit wait up
// to the queue timeout for a slot, then get ErrSaturated.
type Pool struct {
	sem          *semaphore.Weighted
	size         int
	queueTimeout time.Duration
	inFlight     atomic.Int64
	metrics      metrics.Recorder
}

// NewPool creates a Pool. Non-positive arguments fall back to the defaults.
func NewPool(size int, queueTimeout time.Duration, recorder metrics.Recorder) *Pool {
	if size <= 0 {
		size = DefaultSize
	}
	if queueTimeout <= 0 {
		queueTimeout = DefaultQueueTimeout
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Pool{
		sem:          semaphore.NewWeighted(int64(size)),
		size:         size,
		queueTimeout: queueTimeout,
		metrics:      recorder,
	}
}

// Submit runs task once a slot is free and returns its error. The task gets
// ctx, so cancelling the request cancels the work too. A panicking task is
// reported as an error and its slot released.
func (p *Pool) Submit(ctx context.Context, task func(ctx context.Context) error) (err error) {
	waitCtx, cancel := context.WithTimeout(ctx, p.queueTimeout)
	defer cancel()

	start := time.Now()
	if err := p.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.metrics.IncWorkerRejected()
		return ErrSaturated
	}
	p.metrics.ObserveWorkerWait(time.Since(start))

	p.inFlight.Add(1)
	defer func() {
		p.inFlight.Add(-1)
		p.sem.Release(1)
		if rvr := recover(); rvr != nil {
			err = fmt.Errorf("worker task panicked: %v", rvr)
		}
	}()

	return task(ctx)
}

// InFlight returns the number of tasks currently holding a slot.
func (p *Pool) InFlight() int {
	return int(p.inFlight.Load())
}

// Size returns the maximum number of concurrent tasks.
func (p *Pool) Size() int {
	return p.size
}

// Do is Submit for tasks that produce a value.
func Do[T any](ctx context.Context, p *Pool, task func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := p.Submit(ctx, func(ctx context.Context) error {
		var err error
		result, err = task(ctx)
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
