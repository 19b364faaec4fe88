// Package memory provides an in-process implementation of store.TaskStore.
// Records live for the lifetime of the process unless PurgeResolved removes them.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/gamegen-api/internal/domain"
	"github.com/phrazzld/gamegen-api/internal/store"
)

// TaskStore implements store.TaskStore with a lock-protected map.
// Values are stored and returned as copies so no caller ever aliases the
// record held under the lock.
type TaskStore struct {
	mu    sync.RWMutex
	tasks map[uuid.UUID]domain.Task
	now   func() time.Time
}

var _ store.TaskStore = (*TaskStore)(nil)

// NewTaskStore creates an empty in-memory task store
func NewTaskStore() *TaskStore {
	return &TaskStore{
		tasks: make(map[uuid.UUID]domain.Task),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Create inserts a new processing task
func (s *TaskStore) Create(ctx context.Context, prompt string) (*domain.Task, error) {
	task, err := domain.NewTask(prompt)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[task.ID]; exists {
		return nil, fmt.Errorf("%w: task %s", store.ErrDuplicate, task.ID)
	}
	s.tasks[task.ID] = task.Copy()

	out := task.Copy()
	return &out, nil
}

// Get returns a snapshot of the task
func (s *TaskStore) Get(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	out := task.Copy()
	return &out, nil
}

// MarkCompleted resolves the task as completed with result
func (s *TaskStore) MarkCompleted(ctx context.Context, id uuid.UUID, result string) error {
	return s.resolve(id, func(t *domain.Task) error { return t.Complete(result) })
}

// MarkFailed resolves the task as failed
func (s *TaskStore) MarkFailed(ctx context.Context, id uuid.UUID) error {
	return s.resolve(id, func(t *domain.Task) error { return t.Fail() })
}

// MarkErrored resolves the task as error with detail
func (s *TaskStore) MarkErrored(ctx context.Context, id uuid.UUID, detail string) error {
	return s.resolve(id, func(t *domain.Task) error { return t.RecordError(detail) })
}

// resolve applies a domain transition on a working copy and only stores it if
// the transition succeeded, so a rejected transition leaves the record intact.
func (s *TaskStore) resolve(id uuid.UUID, transition func(*domain.Task) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return store.ErrTaskNotFound
	}
	if err := transition(&task); err != nil {
		return err
	}
	task.UpdatedAt = s.now()
	s.tasks[id] = task
	return nil
}

// ListProcessing returns all unresolved tasks
func (s *TaskStore) ListProcessing(ctx context.Context) ([]*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Task, 0)
	for _, task := range s.tasks {
		if task.IsTerminal() {
			continue
		}
		cp := task.Copy()
		out = append(out, &cp)
	}
	return out, nil
}

// PurgeResolved drops terminal tasks whose last update is older than olderThan
func (s *TaskStore) PurgeResolved(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := s.now().Add(-olderThan)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, task := range s.tasks {
		if task.IsTerminal() && task.UpdatedAt.Before(cutoff) {
			delete(s.tasks, id)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of records currently held.
func (s *TaskStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}
