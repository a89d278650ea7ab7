// Package pool provides a per-instance bounded lease over a backend handle.
// The client libraries pool their own sockets; the lease bounds how many
// in-flight calls may hold the handle concurrently and turns a saturated
// instance into a typed pool_exhausted failure instead of an unbounded queue.
package pool

import (
	"context"
	"sync"
	"time"

	"github.com/trupti79916/mcp-multiple-db-toolbox/pkg/connector/core"
	"github.com/trupti79916/mcp-multiple-db-toolbox/pkg/dberrors"
)

const (
	// DefaultSize is the default maximum number of concurrent leases.
	DefaultSize = 10
	// DefaultAcquireTimeout bounds the wait for a free lease.
	DefaultAcquireTimeout = 5 * time.Second
)

// Lease wraps a connector handle with a token semaphore. One token is held
// per in-flight call between Acquire and the release callback.
type Lease struct {
	handle         core.Handle
	tokens         chan struct{}
	acquireTimeout time.Duration

	mu     sync.Mutex
	closed bool
}

// New creates a lease pool of the given size around handle. Non-positive
// size or timeout fall back to the defaults.
func New(handle core.Handle, size int, acquireTimeout time.Duration) *Lease {
	if size <= 0 {
		size = DefaultSize
	}
	if acquireTimeout <= 0 {
		acquireTimeout = DefaultAcquireTimeout
	}
	tokens := make(chan struct{}, size)
	for i := 0; i < size; i++ {
		tokens <- struct{}{}
	}
	return &Lease{
		handle:         handle,
		tokens:         tokens,
		acquireTimeout: acquireTimeout,
	}
}

// Acquire blocks until a lease token is free, the acquire timeout elapses, or
// ctx is done. On success it returns the handle and a release callback that
// must be invoked on every exit path; the callback is safe to call once.
func (l *Lease) Acquire(ctx context.Context) (core.Handle, func(), error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil, nil, dberrors.New(dberrors.ErrorTypeInstanceUnavailable, "pool is closed")
	}
	l.mu.Unlock()

	timer := time.NewTimer(l.acquireTimeout)
	defer timer.Stop()

	select {
	case <-l.tokens:
		var once sync.Once
		release := func() {
			once.Do(func() { l.tokens <- struct{}{} })
		}
		return l.handle, release, nil
	case <-timer.C:
		return nil, nil, dberrors.Newf(dberrors.ErrorTypePoolExhausted,
			"no connection available within %s", l.acquireTimeout)
	case <-ctx.Done():
		return nil, nil, dberrors.Wrap(ctx.Err(), dberrors.ErrorTypeTimeout, "acquire cancelled")
	}
}

// Available returns the number of free lease tokens. Intended for tests and
// diagnostics; the value is immediately stale under concurrency.
func (l *Lease) Available() int {
	return len(l.tokens)
}

// Close marks the pool closed and closes the underlying handle. Idempotent;
// in-flight calls keep their handle until they release.
func (l *Lease) Close(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	return l.handle.Close(ctx)
}
