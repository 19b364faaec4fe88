// Package storetest provides a conformance suite that every store.TaskStore
// implementation runs in its own tests.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/gamegen-api/internal/domain"
	"github.com/phrazzld/gamegen-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty store for a single subtest.
type Factory func(t *testing.T) store.TaskStore

// RunTaskStoreSuite exercises the full TaskStore contract.
func RunTaskStoreSuite(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("create_and_get", func(t *testing.T) { testCreateAndGet(t, newStore(t)) })
	t.Run("create_empty_prompt", func(t *testing.T) { testCreateEmptyPrompt(t, newStore(t)) })
	t.Run("get_unknown", func(t *testing.T) { testGetUnknown(t, newStore(t)) })
	t.Run("mark_completed", func(t *testing.T) { testMarkCompleted(t, newStore(t)) })
	t.Run("mark_failed", func(t *testing.T) { testMarkFailed(t, newStore(t)) })
	t.Run("mark_errored", func(t *testing.T) { testMarkErrored(t, newStore(t)) })
	t.Run("terminal_is_final", func(t *testing.T) { testTerminalIsFinal(t, newStore(t)) })
	t.Run("mark_unknown", func(t *testing.T) { testMarkUnknown(t, newStore(t)) })
	t.Run("list_processing", func(t *testing.T) { testListProcessing(t, newStore(t)) })
	t.Run("purge_resolved", func(t *testing.T) { testPurgeResolved(t, newStore(t)) })
	t.Run("concurrent_create", func(t *testing.T) { testConcurrentCreate(t, newStore(t)) })
	t.Run("concurrent_resolve_single_winner", func(t *testing.T) { testConcurrentResolve(t, newStore(t)) })
	t.Run("get_never_sees_partial_record", func(t *testing.T) { testNoPartialReads(t, newStore(t)) })
}

func testCreateAndGet(t *testing.T, s store.TaskStore) {
	ctx := context.Background()

	created, err := s.Create(ctx, "Create a jump mechanic")
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, domain.TaskStatusProcessing, created.Status)
	assert.Nil(t, created.Result)

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Create a jump mechanic", got.Prompt)
	assert.Equal(t, domain.TaskStatusProcessing, got.Status)
	assert.Nil(t, got.Result)
	assert.Empty(t, got.ErrorDetail)
}

func testCreateEmptyPrompt(t *testing.T, s store.TaskStore) {
	task, err := s.Create(context.Background(), "  ")
	assert.ErrorIs(t, err, domain.ErrEmptyPrompt)
	assert.Nil(t, task)

	processing, err := s.ListProcessing(context.Background())
	require.NoError(t, err)
	assert.Empty(t, processing)
}

func testGetUnknown(t *testing.T, s store.TaskStore) {
	task, err := s.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
	assert.Nil(t, task)
}

func testMarkCompleted(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	created := mustCreate(t, s, "prompt")

	require.NoError(t, s.MarkCompleted(ctx, created.ID, "local speed = 10"))

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, "local speed = 10", *got.Result)
	assert.Empty(t, got.ErrorDetail)
}

func testMarkFailed(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	created := mustCreate(t, s, "prompt")

	require.NoError(t, s.MarkFailed(ctx, created.ID))

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, got.Status)
	assert.Nil(t, got.Result)
	assert.Empty(t, got.ErrorDetail)
}

func testMarkErrored(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	created := mustCreate(t, s, "prompt")

	require.NoError(t, s.MarkErrored(ctx, created.ID, "backend unavailable"))

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusError, got.Status)
	assert.Nil(t, got.Result)
	assert.Equal(t, "backend unavailable", got.ErrorDetail)
}

func testTerminalIsFinal(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	created := mustCreate(t, s, "prompt")
	require.NoError(t, s.MarkCompleted(ctx, created.ID, "first"))

	assert.ErrorIs(t, s.MarkCompleted(ctx, created.ID, "second"), store.ErrTaskAlreadyResolved)
	assert.ErrorIs(t, s.MarkFailed(ctx, created.ID), store.ErrTaskAlreadyResolved)
	assert.ErrorIs(t, s.MarkErrored(ctx, created.ID, "late"), store.ErrTaskAlreadyResolved)

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, "first", *got.Result)
	assert.Empty(t, got.ErrorDetail)
}

func testMarkUnknown(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	id := uuid.New()

	assert.ErrorIs(t, s.MarkCompleted(ctx, id, "x"), store.ErrTaskNotFound)
	assert.ErrorIs(t, s.MarkFailed(ctx, id), store.ErrTaskNotFound)
	assert.ErrorIs(t, s.MarkErrored(ctx, id, "x"), store.ErrTaskNotFound)
}

func testListProcessing(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	pending := mustCreate(t, s, "still running")
	done := mustCreate(t, s, "finished")
	require.NoError(t, s.MarkFailed(ctx, done.ID))

	tasks, err := s.ListProcessing(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, pending.ID, tasks[0].ID)
	assert.Equal(t, "still running", tasks[0].Prompt)
}

func testPurgeResolved(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	running := mustCreate(t, s, "running")
	resolved := mustCreate(t, s, "resolved")
	require.NoError(t, s.MarkCompleted(ctx, resolved.ID, "code"))

	// Nothing is old enough yet
	n, err := s.PurgeResolved(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	time.Sleep(20 * time.Millisecond)
	n, err = s.PurgeResolved(ctx, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.Get(ctx, resolved.ID)
	assert.ErrorIs(t, err, store.ErrTaskNotFound)

	// Processing tasks are never purged
	got, err := s.Get(ctx, running.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusProcessing, got.Status)
}

func testConcurrentCreate(t *testing.T, s store.TaskStore) {
	const n = 50
	ctx := context.Background()

	var (
		mu  sync.Mutex
		ids = make(map[uuid.UUID]string, n)
		wg  sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			prompt := fmt.Sprintf("prompt-%d", i)
			task, err := s.Create(ctx, prompt)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			ids[task.ID] = prompt
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	require.Len(t, ids, n, "every create must yield a distinct id")
	for id, prompt := range ids {
		got, err := s.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, prompt, got.Prompt)
	}
}

func testConcurrentResolve(t *testing.T, s store.TaskStore) {
	const attempts = 20
	ctx := context.Background()
	created := mustCreate(t, s, "prompt")

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		winners  []string
		rejected int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result := fmt.Sprintf("result-%d", i)
			err := s.MarkCompleted(ctx, created.ID, result)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				winners = append(winners, result)
				return
			}
			assert.ErrorIs(t, err, store.ErrTaskAlreadyResolved)
			rejected++
		}(i)
	}
	wg.Wait()

	require.Len(t, winners, 1, "exactly one terminal write may succeed")
	assert.Equal(t, attempts-1, rejected)

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Result)
	assert.Equal(t, winners[0], *got.Result)
}

func testNoPartialReads(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	created := mustCreate(t, s, "prompt")

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			got, err := s.Get(ctx, created.ID)
			if !assert.NoError(t, err) {
				return
			}
			switch got.Status {
			case domain.TaskStatusProcessing:
				assert.Nil(t, got.Result)
			case domain.TaskStatusCompleted:
				if assert.NotNil(t, got.Result) {
					assert.Equal(t, "final", *got.Result)
				}
			default:
				t.Errorf("unexpected status %q", got.Status)
			}
		}
	}()

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, s.MarkCompleted(ctx, created.ID, "final"))
	time.Sleep(5 * time.Millisecond)
	close(done)
	wg.Wait()
}

func mustCreate(t *testing.T, s store.TaskStore, prompt string) *domain.Task {
	t.Helper()
	task, err := s.Create(context.Background(), prompt)
	require.NoError(t, err)
	return task
}
