package memory

import (
	"context"
	"testing"
	"time"

	"github.com/phrazzld/gamegen-api/internal/store"
	"github.com/phrazzld/gamegen-api/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskStore_Conformance(t *testing.T) {
	storetest.RunTaskStoreSuite(t, func(t *testing.T) store.TaskStore {
		return NewTaskStore()
	})
}

func TestTaskStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewTaskStore()

	created, err := s.Create(ctx, "prompt")
	require.NoError(t, err)
	require.NoError(t, s.MarkCompleted(ctx, created.ID, "code"))

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	*got.Result = "tampered"
	got.Status = "processing"

	again, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "code", *again.Result)
	assert.Equal(t, "completed", string(again.Status))
}

func TestTaskStore_PurgeUsesClock(t *testing.T) {
	ctx := context.Background()
	s := NewTaskStore()
	base := time.Date(2026, time.January, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	created, err := s.Create(ctx, "prompt")
	require.NoError(t, err)
	require.NoError(t, s.MarkFailed(ctx, created.ID))
	assert.Equal(t, 1, s.Len())

	s.now = func() time.Time { return base.Add(30 * time.Minute) }
	n, err := s.PurgeResolved(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	s.now = func() time.Time { return base.Add(2 * time.Hour) }
	n, err = s.PurgeResolved(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, s.Len())
}
