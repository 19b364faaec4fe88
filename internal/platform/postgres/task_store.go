package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/gamegen-api/internal/domain"
	"github.com/phrazzld/gamegen-api/internal/platform/logger"
	"github.com/phrazzld/gamegen-api/internal/store"
)

const taskColumns = `id, prompt, status, result, error_detail, created_at, updated_at`

// TaskStore implements the store.TaskStore interface using PostgreSQL
type TaskStore struct {
	db     DBTX
	logger *slog.Logger
}

var _ store.TaskStore = (*TaskStore)(nil)

// NewTaskStore creates a new PostgreSQL task store
func NewTaskStore(db DBTX, logger *slog.Logger) *TaskStore {
	return &TaskStore{
		db:     db,
		logger: logger.With("component", "postgres_task_store"),
	}
}

// Create persists a new processing task
func (s *TaskStore) Create(ctx context.Context, prompt string) (*domain.Task, error) {
	task, err := domain.NewTask(prompt)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO generation_tasks (id, prompt, status, result, error_detail, created_at, updated_at)
		VALUES ($1, $2, $3, NULL, '', $4, $5)
	`
	_, err = s.db.ExecContext(ctx, query,
		task.ID,
		task.Prompt,
		string(task.Status),
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		s.log(ctx).Error("failed to insert task",
			"task_id", task.ID,
			"error", err)
		return nil, fmt.Errorf("failed to save task: %w", MapError(err))
	}

	return task, nil
}

// Get retrieves a task by ID
func (s *TaskStore) Get(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM generation_tasks WHERE id = $1`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		s.log(ctx).Error("failed to get task", "task_id", id, "error", err)
		return nil, fmt.Errorf("failed to get task: %w", MapError(err))
	}
	return task, nil
}

// MarkCompleted resolves the task as completed
func (s *TaskStore) MarkCompleted(ctx context.Context, id uuid.UUID, result string) error {
	return s.resolve(ctx, id, domain.TaskStatusCompleted, sql.NullString{String: result, Valid: true}, "")
}

// MarkFailed resolves the task as failed
func (s *TaskStore) MarkFailed(ctx context.Context, id uuid.UUID) error {
	return s.resolve(ctx, id, domain.TaskStatusFailed, sql.NullString{}, "")
}

// MarkErrored resolves the task as error
func (s *TaskStore) MarkErrored(ctx context.Context, id uuid.UUID, detail string) error {
	return s.resolve(ctx, id, domain.TaskStatusError, sql.NullString{}, detail)
}

// resolve performs the terminal transition as one conditional UPDATE.
// When no row matched, a follow-up existence check tells an unknown task
// apart from one that was already resolved.
func (s *TaskStore) resolve(
	ctx context.Context,
	id uuid.UUID,
	status domain.TaskStatus,
	result sql.NullString,
	detail string,
) error {
	query := `
		UPDATE generation_tasks
		SET status = $2, result = $3, error_detail = $4, updated_at = $5
		WHERE id = $1 AND status = 'processing'
	`
	res, err := s.db.ExecContext(ctx, query, id, string(status), result, detail, time.Now().UTC())
	if err != nil {
		s.log(ctx).Error("failed to resolve task",
			"task_id", id,
			"status", status,
			"error", err)
		return fmt.Errorf("failed to update task status: %w", MapError(err))
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 1 {
		return nil
	}

	var exists bool
	err = s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM generation_tasks WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check task existence: %w", MapError(err))
	}
	if !exists {
		return store.ErrTaskNotFound
	}
	return fmt.Errorf("%w: task %s", store.ErrTaskAlreadyResolved, id)
}

// ListProcessing returns all tasks still in processing, oldest first
func (s *TaskStore) ListProcessing(ctx context.Context) ([]*domain.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM generation_tasks
		WHERE status = 'processing'
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query processing tasks: %w", MapError(err))
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			s.log(ctx).Error("failed to close rows", "error", cerr)
		}
	}()

	tasks := make([]*domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", MapError(err))
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", MapError(err))
	}
	return tasks, nil
}

// PurgeResolved deletes terminal tasks not updated within olderThan
func (s *TaskStore) PurgeResolved(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM generation_tasks WHERE status <> 'processing' AND updated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge tasks: %w", MapError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(n), nil
}

func (s *TaskStore) log(ctx context.Context) *slog.Logger {
	return logger.FromContextOr(ctx, s.logger)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task   domain.Task
		status string
		result sql.NullString
	)
	if err := row.Scan(
		&task.ID,
		&task.Prompt,
		&status,
		&result,
		&task.ErrorDetail,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		return nil, err
	}

	task.Status = domain.TaskStatus(status)
	if err := task.Status.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	if result.Valid {
		r := result.String
		task.Result = &r
	}
	task.CreatedAt = task.CreatedAt.UTC()
	task.UpdatedAt = task.UpdatedAt.UTC()
	return &task, nil
}
