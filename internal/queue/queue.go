// Package queue provides the bounded channel used both between ingest (C1)
// and the worker pool (C3, per spec.md §5's "bounded queue" component) and
// between the worker pool and the alert log's single-consumer writer loop
// (C6). The shape follows the teacher's broadcast-channel pattern in
// internal/api/websocket.go's Hub, adapted from fan-out broadcast to a
// single bounded work queue with depth introspection.
package queue

import "context"

// Queue is a bounded FIFO of items of type T, backed by a buffered
// channel. Capacity must be fixed at construction (spec.md §3 "work
// queue: bounded, capacity 5,000").
type Queue[T any] struct {
	ch chan T
}

// New creates a Queue with the given capacity.
func New[T any](capacity int) *Queue[T] {
	return &Queue[T]{ch: make(chan T, capacity)}
}

// Push enqueues item, blocking until space is available or ctx is
// cancelled.
func (q *Queue[T]) Push(ctx context.Context, item T) error {
	select {
	case q.ch <- item:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryPush enqueues item without blocking. Returns false if the queue is
// full, the signal spec.md §5 calls "drop with a logged warning" for a
// saturated C2.
func (q *Queue[T]) TryPush(item T) bool {
	select {
	case q.ch <- item:
		return true
	default:
		return false
	}
}

// Pop dequeues the next item, blocking until one is available, the queue
// is closed (ok=false), or ctx is cancelled.
func (q *Queue[T]) Pop(ctx context.Context) (item T, ok bool) {
	select {
	case item, ok = <-q.ch:
		return item, ok
	case <-ctx.Done():
		var zero T
		return zero, false
	}
}

// Close signals no further items will be pushed; workers draining via Pop
// observe ok=false once the buffer empties.
func (q *Queue[T]) Close() {
	close(q.ch)
}

// Len reports the current number of buffered items, for status reporting.
func (q *Queue[T]) Len() int {
	return len(q.ch)
}

// Cap reports the queue's fixed capacity.
func (q *Queue[T]) Cap() int {
	return cap(q.ch)
}
