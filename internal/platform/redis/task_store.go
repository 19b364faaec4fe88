// Package redis provides a Redis implementation of store.TaskStore, for
// deployments running several API replicas against one shared task table.
//
// Each task is a hash. Creation and terminal transitions are Lua scripts so
// they execute atomically on the server; HGETALL reads the whole hash in one
// step, so a reader observes either the processing or the resolved record.
//
// Tasks carry no owner. A replica that restarts requeues every processing
// task, including ones a live replica is still generating; the first terminal
// write wins and the duplicate's write is rejected.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/gamegen-api/internal/domain"
	"github.com/phrazzld/gamegen-api/internal/store"
	goredis "github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces every key the store writes. The prefix is
// wrapped in a hash tag, so on Redis Cluster all keys of one store share a
// slot and the multi-key scripts stay legal.
const DefaultKeyPrefix = "gamegen"

// Hash fields
const (
	fieldPrompt      = "prompt"
	fieldStatus      = "status"
	fieldResult      = "result"
	fieldHasResult   = "has_result"
	fieldErrorDetail = "error_detail"
	fieldCreatedAt   = "created_at"
	fieldUpdatedAt   = "updated_at"
)

// createScript inserts the hash only if the key is new.
// KEYS[1] task hash, KEYS[2] processing set. ARGV: id, prompt, status, created, updated.
var createScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
redis.call('HSET', KEYS[1],
	'prompt', ARGV[2],
	'status', ARGV[3],
	'result', '',
	'has_result', '0',
	'error_detail', '',
	'created_at', ARGV[4],
	'updated_at', ARGV[5])
redis.call('SADD', KEYS[2], ARGV[1])
return 1
`)

// resolveScript performs a terminal transition only from processing.
// KEYS[1] task hash, KEYS[2] processing set, KEYS[3] resolved sorted set.
// ARGV: id, status, result, has_result, error_detail, updated_at, updated_ms.
// Returns 1 on success, 0 if the task does not exist, -1 if already resolved.
var resolveScript = goredis.NewScript(`
local status = redis.call('HGET', KEYS[1], 'status')
if not status then
	return 0
end
if status ~= 'processing' then
	return -1
end
redis.call('HSET', KEYS[1],
	'status', ARGV[2],
	'result', ARGV[3],
	'has_result', ARGV[4],
	'error_detail', ARGV[5],
	'updated_at', ARGV[6])
redis.call('SREM', KEYS[2], ARGV[1])
redis.call('ZADD', KEYS[3], ARGV[7], ARGV[1])
return 1
`)

// TaskStore implements store.TaskStore on top of Redis
type TaskStore struct {
	client goredis.UniversalClient
	prefix string
	logger *slog.Logger
}

var _ store.TaskStore = (*TaskStore)(nil)

// NewTaskStore creates a Redis task store. An empty prefix uses DefaultKeyPrefix.
func NewTaskStore(client goredis.UniversalClient, prefix string, logger *slog.Logger) *TaskStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &TaskStore{
		client: client,
		prefix: hashTag(prefix),
		logger: logger.With("component", "redis_task_store"),
	}
}

// Connect parses a redis:// URL, creates a client and pings it.
func Connect(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opts.PoolSize = 10
	opts.MinIdleConns = 2
	opts.PoolTimeout = 5 * time.Second

	client := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: ping redis: %v", store.ErrStoreUnavailable, err)
	}
	return client, nil
}

// hashTag wraps prefix in braces unless it already is a hash tag.
func hashTag(prefix string) string {
	if strings.HasPrefix(prefix, "{") && strings.HasSuffix(prefix, "}") {
		return prefix
	}
	return "{" + prefix + "}"
}

func (s *TaskStore) taskKey(id uuid.UUID) string {
	return s.prefix + ":task:" + id.String()
}

func (s *TaskStore) processingKey() string {
	return s.prefix + ":tasks:processing"
}

func (s *TaskStore) resolvedKey() string {
	return s.prefix + ":tasks:resolved"
}

// Create stores a new processing task
func (s *TaskStore) Create(ctx context.Context, prompt string) (*domain.Task, error) {
	task, err := domain.NewTask(prompt)
	if err != nil {
		return nil, err
	}

	created, err := createScript.Run(ctx, s.client,
		[]string{s.taskKey(task.ID), s.processingKey()},
		task.ID.String(),
		task.Prompt,
		string(task.Status),
		formatTime(task.CreatedAt),
		formatTime(task.UpdatedAt),
	).Int()
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to create task", "task_id", task.ID, "error", err)
		return nil, fmt.Errorf("%w: create task: %v", store.ErrStoreUnavailable, err)
	}
	if created == 0 {
		return nil, fmt.Errorf("%w: task %s", store.ErrDuplicate, task.ID)
	}
	return task, nil
}

// Get reads the task hash
func (s *TaskStore) Get(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	fields, err := s.client.HGetAll(ctx, s.taskKey(id)).Result()
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to get task", "task_id", id, "error", err)
		return nil, fmt.Errorf("%w: get task: %v", store.ErrStoreUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, store.ErrTaskNotFound
	}
	return decodeTask(id, fields)
}

// MarkCompleted resolves the task as completed
func (s *TaskStore) MarkCompleted(ctx context.Context, id uuid.UUID, result string) error {
	return s.resolve(ctx, id, domain.TaskStatusCompleted, result, true, "")
}

// MarkFailed resolves the task as failed
func (s *TaskStore) MarkFailed(ctx context.Context, id uuid.UUID) error {
	return s.resolve(ctx, id, domain.TaskStatusFailed, "", false, "")
}

// MarkErrored resolves the task as error
func (s *TaskStore) MarkErrored(ctx context.Context, id uuid.UUID, detail string) error {
	return s.resolve(ctx, id, domain.TaskStatusError, "", false, detail)
}

func (s *TaskStore) resolve(
	ctx context.Context,
	id uuid.UUID,
	status domain.TaskStatus,
	result string,
	hasResult bool,
	detail string,
) error {
	now := time.Now().UTC()
	hasResultFlag := "0"
	if hasResult {
		hasResultFlag = "1"
	}

	outcome, err := resolveScript.Run(ctx, s.client,
		[]string{s.taskKey(id), s.processingKey(), s.resolvedKey()},
		id.String(),
		string(status),
		result,
		hasResultFlag,
		detail,
		formatTime(now),
		now.UnixMilli(),
	).Int()
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to resolve task",
			"task_id", id,
			"status", status,
			"error", err)
		return fmt.Errorf("%w: resolve task: %v", store.ErrStoreUnavailable, err)
	}

	switch outcome {
	case 1:
		return nil
	case 0:
		return store.ErrTaskNotFound
	default:
		return fmt.Errorf("%w: task %s", store.ErrTaskAlreadyResolved, id)
	}
}

// ListProcessing returns every task in the processing set
func (s *TaskStore) ListProcessing(ctx context.Context) ([]*domain.Task, error) {
	ids, err := s.client.SMembers(ctx, s.processingKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: list processing: %v", store.ErrStoreUnavailable, err)
	}

	tasks := make([]*domain.Task, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			s.logger.WarnContext(ctx, "skipping malformed task id in processing set", "task_id", raw)
			continue
		}
		task, err := s.Get(ctx, id)
		if errors.Is(err, store.ErrTaskNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if task.IsTerminal() {
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// PurgeResolved removes terminal tasks resolved before now-olderThan
func (s *TaskStore) PurgeResolved(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan).UnixMilli()
	ids, err := s.client.ZRangeByScore(ctx, s.resolvedKey(), &goredis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(cutoff, 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: purge: %v", store.ErrStoreUnavailable, err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, raw := range ids {
			pipe.Del(ctx, s.prefix+":task:"+raw)
			pipe.ZRem(ctx, s.resolvedKey(), raw)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: purge: %v", store.ErrStoreUnavailable, err)
	}
	return len(ids), nil
}

func decodeTask(id uuid.UUID, fields map[string]string) (*domain.Task, error) {
	task := &domain.Task{
		ID:          id,
		Prompt:      fields[fieldPrompt],
		Status:      domain.TaskStatus(fields[fieldStatus]),
		ErrorDetail: fields[fieldErrorDetail],
	}
	if err := task.Status.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	if fields[fieldHasResult] == "1" {
		r := fields[fieldResult]
		task.Result = &r
	}

	var err error
	if task.CreatedAt, err = parseTime(fields[fieldCreatedAt]); err != nil {
		return nil, fmt.Errorf("%w: created_at: %v", store.ErrInvalidEntity, err)
	}
	if task.UpdatedAt, err = parseTime(fields[fieldUpdatedAt]); err != nil {
		return nil, fmt.Errorf("%w: updated_at: %v", store.ErrInvalidEntity, err)
	}
	return task, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(v string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, v)
}
