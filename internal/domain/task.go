package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the lifecycle state of a generation task
type TaskStatus string

// Possible task status values
const (
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
	TaskStatusError      TaskStatus = "error"
)

// IsTerminal reports whether no further transition can leave this status
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusError:
		return true
	default:
		return false
	}
}

// Validate checks that the status is one of the known values
func (s TaskStatus) Validate() error {
	switch s {
	case TaskStatusProcessing, TaskStatusCompleted, TaskStatusFailed, TaskStatusError:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStatus, string(s))
	}
}

// Task is one asynchronous generation job.
//
// Result is non-nil if and only if Status is TaskStatusCompleted.
// ErrorDetail is only set when Status is TaskStatusError.
type Task struct {
	ID          uuid.UUID
	Prompt      string
	Status      TaskStatus
	Result      *string
	ErrorDetail string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewTask creates a task in the processing state with a fresh identifier
func NewTask(prompt string) (*Task, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}

	now := time.Now().UTC()
	return &Task{
		ID:        uuid.New(),
		Prompt:    prompt,
		Status:    TaskStatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsTerminal reports whether the task has reached a terminal state
func (t *Task) IsTerminal() bool {
	return t.Status.IsTerminal()
}

// Complete moves the task to completed with the given result
func (t *Task) Complete(result string) error {
	if t.IsTerminal() {
		return t.resolvedErr()
	}
	t.Status = TaskStatusCompleted
	t.Result = &result
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// Fail moves the task to failed (backend produced no usable output)
func (t *Task) Fail() error {
	if t.IsTerminal() {
		return t.resolvedErr()
	}
	t.Status = TaskStatusFailed
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// RecordError moves the task to error, recording a diagnostic detail
func (t *Task) RecordError(detail string) error {
	if t.IsTerminal() {
		return t.resolvedErr()
	}
	t.Status = TaskStatusError
	t.ErrorDetail = detail
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// Copy returns a deep copy so callers can't mutate shared state through Result.
func (t Task) Copy() Task {
	if t.Result != nil {
		r := *t.Result
		t.Result = &r
	}
	return t
}

func (t *Task) resolvedErr() error {
	return fmt.Errorf("%w: task %s is %s", ErrTaskAlreadyResolved, t.ID, t.Status)
}
