package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/gamegen-api/internal/domain"
)

// TaskStore defines the operations for creating, reading and resolving tasks.
type TaskStore interface {
	// Create inserts a new task in the processing state for the given prompt.
	// Returns domain.ErrEmptyPrompt if the prompt is blank.
	Create(ctx context.Context, prompt string) (*domain.Task, error)

	// Get returns a snapshot of the task or ErrTaskNotFound.
	Get(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// MarkCompleted atomically sets status completed and stores the result.
	MarkCompleted(ctx context.Context, id uuid.UUID, result string) error

	// MarkFailed atomically sets status failed.
	MarkFailed(ctx context.Context, id uuid.UUID) error

	// MarkErrored atomically sets status error with a diagnostic detail.
	MarkErrored(ctx context.Context, id uuid.UUID, detail string) error

	// ListProcessing returns every task that has not reached a terminal state.
	ListProcessing(ctx context.Context) ([]*domain.Task, error)

	// PurgeResolved deletes terminal tasks last updated more than olderThan ago
	// and returns how many were removed.
	PurgeResolved(ctx context.Context, olderThan time.Duration) (int, error)
}
