package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTask(t *testing.T) {
	t.Parallel()

	task, err := NewTask("Create a jump mechanic")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, task.ID)
	assert.Equal(t, "Create a jump mechanic", task.Prompt)
	assert.Equal(t, TaskStatusProcessing, task.Status)
	assert.Nil(t, task.Result)
	assert.Empty(t, task.ErrorDetail)
	assert.False(t, task.IsTerminal())
	assert.False(t, task.CreatedAt.IsZero())
	assert.Equal(t, task.CreatedAt, task.UpdatedAt)
}

func TestNewTask_EmptyPrompt(t *testing.T) {
	t.Parallel()

	for _, prompt := range []string{"", "   ", "\n\t"} {
		task, err := NewTask(prompt)
		assert.ErrorIs(t, err, ErrEmptyPrompt)
		assert.Nil(t, task)
	}
}

func TestNewTask_UniqueIDs(t *testing.T) {
	t.Parallel()

	seen := make(map[uuid.UUID]bool)
	for i := 0; i < 1000; i++ {
		task, err := NewTask("prompt")
		require.NoError(t, err)
		require.False(t, seen[task.ID], "duplicate id %s", task.ID)
		seen[task.ID] = true
	}
}

func TestTask_Transitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		transition     func(*Task) error
		expectedStatus TaskStatus
		expectResult   bool
		expectedDetail string
	}{
		{
			name:           "complete",
			transition:     func(task *Task) error { return task.Complete("local x = 1") },
			expectedStatus: TaskStatusCompleted,
			expectResult:   true,
		},
		{
			name:           "fail",
			transition:     func(task *Task) error { return task.Fail() },
			expectedStatus: TaskStatusFailed,
		},
		{
			name:           "error",
			transition:     func(task *Task) error { return task.RecordError("backend unavailable") },
			expectedStatus: TaskStatusError,
			expectedDetail: "backend unavailable",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			task, err := NewTask("prompt")
			require.NoError(t, err)

			require.NoError(t, tc.transition(task))
			assert.Equal(t, tc.expectedStatus, task.Status)
			assert.True(t, task.IsTerminal())
			assert.Equal(t, tc.expectResult, task.Result != nil)
			assert.Equal(t, tc.expectedDetail, task.ErrorDetail)

			// Every further transition is rejected and leaves the record untouched
			snapshot := task.Copy()
			assert.ErrorIs(t, task.Complete("other"), ErrTaskAlreadyResolved)
			assert.ErrorIs(t, task.Fail(), ErrTaskAlreadyResolved)
			assert.ErrorIs(t, task.RecordError("other"), ErrTaskAlreadyResolved)
			assert.Equal(t, snapshot, task.Copy())
		})
	}
}

func TestTask_CopyIsolatesResult(t *testing.T) {
	t.Parallel()

	task, err := NewTask("prompt")
	require.NoError(t, err)
	require.NoError(t, task.Complete("original"))

	cp := task.Copy()
	*cp.Result = "mutated"
	assert.Equal(t, "original", *task.Result)
}

func TestTaskStatus(t *testing.T) {
	t.Parallel()

	assert.False(t, TaskStatusProcessing.IsTerminal())
	assert.True(t, TaskStatusCompleted.IsTerminal())
	assert.True(t, TaskStatusFailed.IsTerminal())
	assert.True(t, TaskStatusError.IsTerminal())

	assert.NoError(t, TaskStatusError.Validate())
	err := TaskStatus("pending").Validate()
	assert.True(t, errors.Is(err, ErrInvalidStatus))
}
