package task

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func newJob(prompt string) Job {
	return Job{TaskID: uuid.New(), Prompt: prompt}
}

func TestNewTaskQueue(t *testing.T) {
	queue := NewTaskQueue(10, setupTestLogger())

	assert.NotNil(t, queue)
	assert.Equal(t, 10, cap(queue.jobs))
	assert.False(t, queue.closed)

	// Non-positive sizes are raised to 1
	queue = NewTaskQueue(0, setupTestLogger())
	assert.Equal(t, 1, cap(queue.jobs))
}

func TestEnqueue(t *testing.T) {
	queue := NewTaskQueue(2, setupTestLogger())

	job1 := newJob("one")
	job2 := newJob("two")
	require.NoError(t, queue.Enqueue(job1))
	require.NoError(t, queue.Enqueue(job2))
	assert.Equal(t, 2, queue.Len())

	// Queue is full
	err := queue.Enqueue(newJob("three"))
	assert.ErrorIs(t, err, ErrQueueFull)

	// FIFO order
	assert.Equal(t, job1, <-queue.Channel())
	assert.Equal(t, job2, <-queue.Channel())
}

func TestClose(t *testing.T) {
	queue := NewTaskQueue(2, setupTestLogger())
	job := newJob("buffered")
	require.NoError(t, queue.Enqueue(job))

	queue.Close()
	assert.True(t, queue.closed)

	// Closing twice does not panic
	assert.NotPanics(t, queue.Close)

	assert.ErrorIs(t, queue.Enqueue(newJob("late")), ErrQueueClosed)

	// Buffered jobs are still readable, then the channel reports closed
	got, ok := <-queue.Channel()
	assert.True(t, ok)
	assert.Equal(t, job, got)

	_, ok = <-queue.Channel()
	assert.False(t, ok)
}

func TestEnqueue_ConcurrentWithClose(t *testing.T) {
	queue := NewTaskQueue(100, setupTestLogger())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := queue.Enqueue(newJob("p"))
			if err != nil {
				assert.ErrorIs(t, err, ErrQueueClosed)
			}
		}()
	}
	queue.Close()
	wg.Wait()

	count := 0
	for range queue.Channel() {
		count++
	}
	assert.LessOrEqual(t, count, 50)
}

func TestEnqueueWait(t *testing.T) {
	queue := NewTaskQueue(1, setupTestLogger())
	require.NoError(t, queue.Enqueue(newJob("first")))

	// Blocks until a consumer makes room
	second := newJob("second")
	errCh := make(chan error, 1)
	go func() {
		errCh <- queue.EnqueueWait(context.Background(), second)
	}()

	<-queue.Channel()
	require.NoError(t, <-errCh)
	assert.Equal(t, second, <-queue.Channel())
}

func TestEnqueueWait_ContextCancelled(t *testing.T) {
	queue := NewTaskQueue(1, setupTestLogger())
	require.NoError(t, queue.Enqueue(newJob("first")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := queue.EnqueueWait(ctx, newJob("second"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, queue.Len())

	// A cancelled sender does not hold up Close
	queue.Close()
	assert.ErrorIs(t, queue.EnqueueWait(context.Background(), newJob("late")), ErrQueueClosed)
}
