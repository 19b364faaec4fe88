package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Common errors returned by the TaskQueue
var (
	ErrQueueClosed = errors.New("task queue is closed")
	ErrQueueFull   = errors.New("task queue is full")
)

// JobQueueReader gives workers read-only access to queued jobs.
type JobQueueReader interface {
	// Channel returns the channel workers consume from. It is closed by Close.
	Channel() <-chan Job
}

// JobQueueWriter lets the runner enqueue jobs.
type JobQueueWriter interface {
	// Enqueue adds a job without blocking.
	// Returns ErrQueueFull or ErrQueueClosed when the job cannot be accepted.
	Enqueue(job Job) error

	// Close stops further submission. Jobs already buffered stay readable.
	Close()
}

// TaskQueue is a buffered job channel satisfying JobQueueReader and JobQueueWriter.
// Senders hold the read lock so Close cannot close the channel under them.
type TaskQueue struct {
	mu     sync.RWMutex
	jobs   chan Job
	closed bool
	logger *slog.Logger
}

// NewTaskQueue creates a new queue with the given buffer size
func NewTaskQueue(size int, logger *slog.Logger) *TaskQueue {
	if size < 1 {
		size = 1
	}
	return &TaskQueue{
		jobs:   make(chan Job, size),
		logger: logger,
	}
}

// Enqueue adds a job to the queue for processing
func (q *TaskQueue) Enqueue(job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.jobs <- job:
		q.logger.Debug("job enqueued",
			"task_id", job.TaskID,
			"queue_len", len(q.jobs),
			"queue_cap", cap(q.jobs))
		return nil
	default:
		return fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, cap(q.jobs))
	}
}

// EnqueueWait adds a job, blocking until there is room or ctx is done.
// Close waits for blocked calls, so cancel their context before closing.
func (q *TaskQueue) EnqueueWait(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close closes the queue. Safe to call more than once.
func (q *TaskQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.jobs)
		q.logger.Info("task queue closed")
	}
}

// Channel returns a read-only channel for consuming jobs
func (q *TaskQueue) Channel() <-chan Job {
	return q.jobs
}

// Len reports the number of buffered jobs.
func (q *TaskQueue) Len() int {
	return len(q.jobs)
}
