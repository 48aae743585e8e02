// Package queue buffers lift results between the API and the scoring workers.
package queue

import (
	"context"
	"sync"

	"github.com/okian/gamx/internal/domain/model"
	"github.com/okian/gamx/pkg/metrics"
)

const defaultQueueCapacity = 100_000

// Result is the payload flowing through the queue.
type Result = model.LiftResult

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a result without blocking. It returns ErrFull when the
	// queue is at capacity and ErrClosed after Close.
	Enqueue(ctx context.Context, r Result) error

	// Dequeue returns the channel results are delivered on. The channel is
	// closed by Close once drained.
	Dequeue(ctx context.Context) <-chan Result

	// Len returns the current number of queued results.
	Len(ctx context.Context) int

	// Close stops accepting results. Queued results stay readable.
	Close() error

	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	results  chan Result
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.results = make(chan Result, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	q.observe()
	return q
}

// Enqueue adds a result to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, r Result) error { //nolint:gocritic // hugeParam: results travel by value
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return err
	}

	select {
	case q.results <- r:
		metrics.RecordQueueEnqueue()
		q.observe()
		return nil
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return ErrFull
	}
}

// Dequeue returns the receive side of the queue. Consumers record their own
// dequeue metrics through Dequeued.
func (q *InMemoryQueue) Dequeue(_ context.Context) <-chan Result {
	return q.results
}

// Dequeued updates the queue gauges after a consumer took a result.
func (q *InMemoryQueue) Dequeued() {
	metrics.RecordQueueDequeue()
	q.observe()
}

// Len returns the current number of queued results.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return q.observe()
}

// Capacity returns the configured capacity.
func (q *InMemoryQueue) Capacity() int { return q.capacity }

func (q *InMemoryQueue) observe() int {
	size := len(q.results)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
	return size
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.results)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
