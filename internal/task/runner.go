package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/gamegen-api/internal/domain"
	"github.com/phrazzld/gamegen-api/internal/generation"
	"github.com/phrazzld/gamegen-api/internal/postprocess"
	"github.com/phrazzld/gamegen-api/internal/redact"
	"github.com/phrazzld/gamegen-api/internal/store"
)

// Detail strings recorded on tasks resolved as error.
const (
	DetailQueueUnavailable = "task queue unavailable"
	DetailTimeout          = "generation timed out"
	DetailCancelled        = "generation cancelled"
)

// storeWriteTimeout bounds terminal writes, which run on a fresh context so
// they still land after the worker context is cancelled.
const storeWriteTimeout = 10 * time.Second

// ErrRunnerStarted is returned when Start is called twice.
var ErrRunnerStarted = errors.New("task runner already started")

// RunnerConfig holds configuration for the runner
type RunnerConfig struct {
	// WorkerCount determines how many concurrent workers process jobs
	WorkerCount int

	// QueueSize determines the buffer size of the job queue
	QueueSize int

	// Unbounded runs every job on its own goroutine
	Unbounded bool

	// GenerationTimeout bounds each backend call. Zero disables the timeout.
	GenerationTimeout time.Duration

	// Retention is how long resolved tasks are kept. Zero keeps them forever.
	Retention time.Duration

	// RetentionCheckInterval defines how often resolved tasks are purged.
	// If zero, defaults to one minute.
	RetentionCheckInterval time.Duration
}

// DefaultRunnerConfig returns a RunnerConfig with reasonable defaults
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		WorkerCount:            DefaultWorkerPoolConfig().WorkerCount,
		QueueSize:              100,
		GenerationTimeout:      120 * time.Second,
		RetentionCheckInterval: time.Minute,
	}
}

// Runner accepts prompts, runs generation in the background and records the
// outcome of every task exactly once.
type Runner struct {
	store     store.TaskStore
	generator generation.Generator
	options   generation.OptionsPolicy
	cleaner   postprocess.Cleaner
	metrics   MetricsRecorder

	queue *TaskQueue
	pool  *WorkerPool

	config RunnerConfig
	logger *slog.Logger

	mu      sync.Mutex
	started bool
	stopped bool

	// monitorWG tracks the recovery feeder and the retention monitor
	monitorWG      sync.WaitGroup
	monitorCancel  context.CancelFunc
	recoveryCancel context.CancelFunc
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithMetrics sets the metrics recorder.
func WithMetrics(m MetricsRecorder) RunnerOption {
	return func(r *Runner) {
		if m != nil {
			r.metrics = m
		}
	}
}

// NewRunner creates a Runner. Nil options or cleaner fall back to
// FixedOptions{} and postprocess.TrimCleaner.
func NewRunner(
	taskStore store.TaskStore,
	generator generation.Generator,
	options generation.OptionsPolicy,
	cleaner postprocess.Cleaner,
	config RunnerConfig,
	logger *slog.Logger,
	opts ...RunnerOption,
) *Runner {
	if options == nil {
		options = generation.FixedOptions{}
	}
	if cleaner == nil {
		cleaner = postprocess.TrimCleaner
	}
	if config.RetentionCheckInterval <= 0 {
		config.RetentionCheckInterval = time.Minute
	}

	logger = logger.With("component", "task_runner")

	r := &Runner{
		store:     taskStore,
		generator: generator,
		options:   options,
		cleaner:   cleaner,
		metrics:   noopMetrics{},
		queue:     NewTaskQueue(config.QueueSize, logger),
		config:    config,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.pool = NewWorkerPool(r.queue, WorkerPoolConfig{
		WorkerCount: config.WorkerCount,
		Unbounded:   config.Unbounded,
	}, r.handle, logger)

	return r
}

// Submit records a new processing task for prompt and enqueues it. It never
// waits for generation. If the job cannot be enqueued the task is resolved
// as error and the enqueue error is returned.
func (r *Runner) Submit(ctx context.Context, prompt string) (*domain.Task, error) {
	t, err := r.store.Create(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	r.metrics.TaskSubmitted()

	if err := r.queue.Enqueue(Job{TaskID: t.ID, Prompt: t.Prompt}); err != nil {
		r.logger.ErrorContext(ctx, "failed to enqueue task",
			"task_id", t.ID,
			"error", err)
		r.resolve(t.ID, errorOutcome(DetailQueueUnavailable), r.logger.With("task_id", t.ID))
		return nil, fmt.Errorf("failed to enqueue task %s: %w", t.ID, err)
	}

	r.logger.InfoContext(ctx, "task submitted", "task_id", t.ID)
	return t, nil
}

// Start launches the workers, requeues tasks left processing by a previous
// run and, when retention is configured, starts the purge monitor.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return ErrRunnerStarted
	}

	pending, err := r.store.ListProcessing(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list processing tasks: %w", err)
	}

	r.pool.Start()

	if len(pending) > 0 {
		ctx, cancel := context.WithCancel(r.pool.Context())
		r.recoveryCancel = cancel
		r.monitorWG.Add(1)
		go r.recover(ctx, pending)
	}

	if r.config.Retention > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		r.monitorCancel = cancel
		r.monitorWG.Add(1)
		go r.retentionMonitor(ctx)
	}

	r.started = true
	return nil
}

// Stop halts recovery, closes the queue, cancels in-flight generation and
// waits for every worker to return. Jobs still buffered remain processing in
// the store.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return
	}
	r.stopped = true

	if r.recoveryCancel != nil {
		r.recoveryCancel()
	}
	if r.monitorCancel != nil {
		r.monitorCancel()
	}
	r.monitorWG.Wait()

	r.queue.Close()
	r.pool.Stop()

	r.logger.Info("task runner stopped", "abandoned_jobs", r.queue.Len())
}

// recover feeds tasks left processing into the queue, waiting for room as
// the workers drain it. Tasks not fed before ctx is cancelled stay processing.
func (r *Runner) recover(ctx context.Context, pending []*domain.Task) {
	defer r.monitorWG.Done()

	r.logger.Info("recovering unfinished tasks", "processing_count", len(pending))

	for i, t := range pending {
		if err := r.queue.EnqueueWait(ctx, Job{TaskID: t.ID, Prompt: t.Prompt}); err != nil {
			r.logger.Warn("task recovery interrupted",
				"requeued", i,
				"remaining", len(pending)-i,
				"error", err)
			return
		}
	}
	r.logger.Info("task recovery finished", "requeued", len(pending))
}

// handle runs one job to completion and records its outcome
func (r *Runner) handle(ctx context.Context, workerID int, job Job) {
	logger := r.logger.With("task_id", job.TaskID, "worker_id", workerID)

	r.metrics.InFlightChanged(1)
	defer r.metrics.InFlightChanged(-1)

	logger.InfoContext(ctx, "processing task")

	outcome := r.execute(ctx, job, logger)
	r.resolve(job.TaskID, outcome, logger)
}

// execute calls the backend and cleans its output. It never panics.
func (r *Runner) execute(ctx context.Context, job Job, logger *slog.Logger) (out Outcome) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error("panic during task execution", "panic", redact.String(fmt.Sprint(p)))
			out = errorOutcome(redact.String(fmt.Sprintf("internal error: %v", p)))
		}
	}()

	genCtx := ctx
	if r.config.GenerationTimeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, r.config.GenerationTimeout)
		defer cancel()
	}

	start := time.Now()
	text, err := r.generator.Generate(genCtx, job.Prompt, r.options.OptionsFor(job.Prompt))
	r.metrics.GenerationObserved(time.Since(start))

	if err != nil {
		return classifyError(ctx, genCtx, err, logger)
	}

	if strings.TrimSpace(text) == "" {
		logger.WarnContext(ctx, "backend returned empty output")
		return failedOutcome()
	}

	return completedOutcome(r.cleaner.Clean(text))
}

// classifyError maps a backend error to failed or error
func classifyError(parent, genCtx context.Context, err error, logger *slog.Logger) Outcome {
	switch {
	case generation.IsNoOutput(err):
		logger.WarnContext(parent, "backend produced no usable output", "error", redact.Error(err))
		return failedOutcome()
	case parent.Err() != nil:
		logger.WarnContext(parent, "generation cancelled", "error", redact.Error(err))
		return errorOutcome(DetailCancelled)
	case errors.Is(genCtx.Err(), context.DeadlineExceeded):
		logger.WarnContext(parent, "generation timed out", "error", redact.Error(err))
		return errorOutcome(DetailTimeout)
	default:
		logger.ErrorContext(parent, "generation failed", "error", redact.Error(err))
		return errorOutcome(redact.Error(err))
	}
}

// resolve writes outcome to the store exactly once
func (r *Runner) resolve(id uuid.UUID, outcome Outcome, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), storeWriteTimeout)
	defer cancel()

	var err error
	switch outcome.Status {
	case domain.TaskStatusCompleted:
		err = r.store.MarkCompleted(ctx, id, outcome.Result)
	case domain.TaskStatusFailed:
		err = r.store.MarkFailed(ctx, id)
	default:
		err = r.store.MarkErrored(ctx, id, outcome.Detail)
	}

	if err != nil {
		if errors.Is(err, store.ErrTaskAlreadyResolved) {
			logger.Warn("task was already resolved")
			return
		}
		logger.Error("failed to record task outcome",
			"status", outcome.Status,
			"error", redact.Error(err))
		return
	}

	r.metrics.TaskResolved(outcome.Status)
	logger.Info("task resolved", "status", outcome.Status)
}

// retentionMonitor periodically deletes resolved tasks older than the
// retention window
func (r *Runner) retentionMonitor(ctx context.Context) {
	defer r.monitorWG.Done()

	ticker := time.NewTicker(r.config.RetentionCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			r.purge(ctx)
		}
	}
}

func (r *Runner) purge(ctx context.Context) {
	n, err := r.store.PurgeResolved(ctx, r.config.Retention)
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Error("failed to purge resolved tasks", "error", redact.Error(err))
		}
		return
	}
	if n > 0 {
		r.logger.Info("purged resolved tasks", "count", n, "retention", r.config.Retention.String())
	}
}
