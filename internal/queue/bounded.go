// SPDX-License-Identifier: MIT
/*
Package queue provides the bounded hand-off queues between the capture
callback, the processing loop and the feature consumers.

Overflow policy is chosen per call site:
  - TryPut drops the newest item when the queue is full (intake side).
  - PutEvictOldest discards the oldest resident item to make room (outbound side).

Neither operation ever grows the queue beyond its capacity, and neither
blocks longer than the budget it is given.
*/
package queue

import (
	"context"
	"time"
)

// Bounded is a fixed-capacity FIFO backed by a buffered channel. It is safe
// for one producer and one consumer; multiple producers are also safe but
// lose the strict drop-oldest guarantee of PutEvictOldest.
type Bounded[T any] struct {
	ch chan T

	// evictNow and evictWithin discard the oldest item for PutEvictOldest.
	// Tests replace them to force the timeout path.
	evictNow    func() bool
	evictWithin func(budget time.Duration) bool
}

// New creates a queue holding at most capacity items. capacity must be positive.
func New[T any](capacity int) *Bounded[T] {
	if capacity <= 0 {
		panic("queue: capacity must be positive")
	}
	q := &Bounded[T]{ch: make(chan T, capacity)}
	q.evictNow = func() bool {
		_, ok := q.TryPop()
		return ok
	}
	q.evictWithin = q.awaitOldest
	return q
}

// TryPut enqueues v without blocking. It reports false when the queue is
// full, in which case v is dropped.
func (q *Bounded[T]) TryPut(v T) bool {
	select {
	case q.ch <- v:
		return true
	default:
		return false
	}
}

// TryPop dequeues without blocking.
func (q *Bounded[T]) TryPop() (T, bool) {
	select {
	case v := <-q.ch:
		return v, true
	default:
		var zero T
		return zero, false
	}
}

// PopTimeout waits up to timeout for an item. It reports false on timeout
// or when ctx is done.
func (q *Bounded[T]) PopTimeout(ctx context.Context, timeout time.Duration) (T, bool) {
	// Fast path avoids allocating a timer when data is already waiting.
	if v, ok := q.TryPop(); ok {
		return v, true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case v := <-q.ch:
		return v, true
	case <-timer.C:
	case <-ctx.Done():
	}
	var zero T
	return zero, false
}

// Pop blocks until an item is available or ctx is done.
func (q *Bounded[T]) Pop(ctx context.Context) (T, bool) {
	select {
	case v := <-q.ch:
		return v, true
	case <-ctx.Done():
		var zero T
		return zero, false
	}
}

// PutResult describes what PutEvictOldest did.
type PutResult int

const (
	// Stored means v was enqueued without touching resident items.
	Stored PutResult = iota
	// StoredAfterEvict means the oldest item was discarded to make room for v.
	StoredAfterEvict
	// Dropped means v was discarded and the queue left as it was.
	Dropped
)

// PutEvictOldest enqueues v, discarding the oldest resident item first when
// the queue is full. The eviction waits at most evictBudget; if nothing could
// be evicted and no room opened up in that time, v is dropped and the queue
// is left as it was. The call never blocks beyond evictBudget.
func (q *Bounded[T]) PutEvictOldest(v T, evictBudget time.Duration) PutResult {
	if q.TryPut(v) {
		return Stored
	}

	if !q.evictNow() {
		// The consumer drained the queue after the failed put.
		if q.TryPut(v) {
			return Stored
		}
		if !q.evictWithin(evictBudget) {
			if q.TryPut(v) {
				return Stored
			}
			return Dropped
		}
	}

	if q.TryPut(v) {
		return StoredAfterEvict
	}
	return Dropped
}

// awaitOldest discards the next resident item, waiting at most budget.
func (q *Bounded[T]) awaitOldest(budget time.Duration) bool {
	timer := time.NewTimer(budget)
	defer timer.Stop()
	select {
	case <-q.ch:
		return true
	case <-timer.C:
		return false
	}
}

// Len returns the number of queued items.
func (q *Bounded[T]) Len() int { return len(q.ch) }

// Cap returns the fixed capacity.
func (q *Bounded[T]) Cap() int { return cap(q.ch) }

// Full reports whether the queue is at capacity.
func (q *Bounded[T]) Full() bool { return len(q.ch) == cap(q.ch) }

// C exposes the receive side for consumers that select over several sources.
func (q *Bounded[T]) C() <-chan T { return q.ch }
