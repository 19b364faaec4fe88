package task

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// JobHandler processes one job. workerID identifies the goroutine for logging.
type JobHandler func(ctx context.Context, workerID int, job Job)

// WorkerPool consumes jobs from a queue and hands them to a JobHandler.
type WorkerPool struct {
	// queue provides read access to the jobs to be processed
	queue JobQueueReader

	// workerCount is the number of concurrent workers in bounded mode
	workerCount int

	// unbounded starts a goroutine per job instead of a fixed set of workers
	unbounded bool

	handler JobHandler

	// wg tracks worker and per-job goroutines for clean shutdown
	wg sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	nextID atomic.Int64
	logger *slog.Logger
}

// WorkerPoolConfig holds configuration options for the worker pool
type WorkerPoolConfig struct {
	// WorkerCount determines how many concurrent worker goroutines to start.
	// If zero or negative, the DefaultWorkerPoolConfig count is used.
	// Ignored when Unbounded is set.
	WorkerCount int

	// Unbounded runs every dequeued job on its own goroutine.
	Unbounded bool
}

// DefaultWorkerPoolConfig returns a WorkerPoolConfig with reasonable defaults
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		WorkerCount: 4,
	}
}

// NewWorkerPool creates a new worker pool with the specified configuration
func NewWorkerPool(
	queue JobQueueReader,
	config WorkerPoolConfig,
	handler JobHandler,
	logger *slog.Logger,
) *WorkerPool {
	workerCount := config.WorkerCount
	if workerCount <= 0 {
		workerCount = DefaultWorkerPoolConfig().WorkerCount
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.WorkerCount,
			"default_count", workerCount)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		queue:       queue,
		workerCount: workerCount,
		unbounded:   config.Unbounded,
		handler:     handler,
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
	}
}

// Start launches the workers. In unbounded mode a single dispatcher spawns
// one goroutine per job.
func (p *WorkerPool) Start() {
	if p.unbounded {
		p.wg.Add(1)
		go p.dispatch()
		p.logger.Info("worker pool started", "mode", "unbounded")
		return
	}

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.logger.Info("worker pool started", "mode", "bounded", "worker_count", p.workerCount)
}

// Stop cancels the pool context and waits for every goroutine to return.
func (p *WorkerPool) Stop() {
	p.cancel()
	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

// Context is cancelled when Stop is called.
func (p *WorkerPool) Context() context.Context {
	return p.ctx
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("starting worker", "worker_id", id)

	for {
		select {
		case <-p.ctx.Done():
			p.logger.Debug("stopping worker", "worker_id", id)
			return

		case job, ok := <-p.queue.Channel():
			if !ok {
				p.logger.Debug("job channel closed, stopping worker", "worker_id", id)
				return
			}
			// A job dequeued after cancellation stays in the store untouched.
			if p.ctx.Err() != nil {
				return
			}
			p.handler(p.ctx, id, job)
		}
	}
}

func (p *WorkerPool) dispatch() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return

		case job, ok := <-p.queue.Channel():
			if !ok {
				return
			}
			if p.ctx.Err() != nil {
				return
			}
			id := int(p.nextID.Add(1))
			p.wg.Add(1)
			go func() {
				defer p.wg.Done()
				p.handler(p.ctx, id, job)
			}()
		}
	}
}
