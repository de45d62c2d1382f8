package emailjob

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrQueueFull is returned by non-blocking enqueues when the buffer is saturated.
	ErrQueueFull = errors.New("email queue is full, try again later")

	// ErrWorkerStopped is returned when the queue is closed or its worker has exited.
	ErrWorkerStopped = errors.New("email worker has stopped")
)

// Queue is the producer handle for the email job channel. It is safe for
// concurrent use by any number of producers; exactly one Worker consumes it.
type Queue struct {
	jobs        chan Job
	stopped     chan struct{} // closed when the worker exits
	nonBlocking bool

	mu     sync.RWMutex
	closed bool
}

// Enqueue submits a job for background delivery.
//
// In blocking mode (the default) it waits until buffer space is available,
// the worker stops, or ctx is cancelled. In non-blocking mode it fails
// immediately with ErrQueueFull when the buffer is saturated.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrWorkerStopped
	}

	select {
	case <-q.stopped:
		return ErrWorkerStopped
	default:
	}

	if q.nonBlocking {
		select {
		case q.jobs <- job:
			return nil
		case <-q.stopped:
			return ErrWorkerStopped
		default:
			return ErrQueueFull
		}
	}

	select {
	case q.jobs <- job:
		return nil
	case <-q.stopped:
		return ErrWorkerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting new jobs and lets the worker drain what is already
// buffered. Safe to call more than once.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
}

// Closed reports whether the queue no longer accepts jobs.
func (q *Queue) Closed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

// Len returns the number of buffered jobs.
func (q *Queue) Len() int {
	return len(q.jobs)
}
