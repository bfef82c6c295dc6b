// Package concurrency provides a bounded worker pool for fan-out calls
package concurrency

import (
	"context"
	"time"

	"exchanges_gateway/internal/core"

	"github.com/alitto/pond"
)

// PoolConfig holds configuration for a worker pool
type PoolConfig struct {
	Name        string
	MaxWorkers  int
	MaxCapacity int // queued tasks beyond MaxWorkers before RunAll blocks
	IdleTimeout time.Duration
}

// Stats is a snapshot of pool counters
type Stats struct {
	RunningWorkers int
	IdleWorkers    int
	Submitted      uint64
	Waiting        uint64
	Succeeded      uint64
	Failed         uint64
}

// WorkerPool runs groups of context-aware tasks on a shared pond pool
type WorkerPool struct {
	pool   *pond.WorkerPool
	config PoolConfig
	logger core.ILogger
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(cfg PoolConfig, logger core.ILogger) *WorkerPool {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 10
	}
	if cfg.MaxCapacity <= 0 {
		cfg.MaxCapacity = 100
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
	logger = logger.WithField("component", "worker_pool").WithField("pool", cfg.Name)

	return &WorkerPool{
		pool: pond.New(cfg.MaxWorkers, cfg.MaxCapacity,
			pond.IdleTimeout(cfg.IdleTimeout),
			pond.Strategy(pond.Balanced()),
			pond.PanicHandler(func(p interface{}) {
				logger.Error("Fan-out task panicked", "panic", p)
			}),
		),
		config: cfg,
		logger: logger,
	}
}

// RunAll runs every task on the pool and waits for them. The first error
// cancels the context handed to the remaining tasks and is returned.
func (wp *WorkerPool) RunAll(ctx context.Context, tasks ...func(ctx context.Context) error) error {
	group, groupCtx := wp.pool.GroupContext(ctx)
	for _, task := range tasks {
		group.Submit(func() error {
			return task(groupCtx)
		})
	}
	return group.Wait()
}

// Stop waits for queued tasks and stops the workers
func (wp *WorkerPool) Stop() {
	wp.pool.StopAndWait()
	s := wp.Stats()
	wp.logger.Debug("Worker pool stopped", "submitted", s.Submitted, "succeeded", s.Succeeded, "failed", s.Failed)
}

// Stats returns pool counters
func (wp *WorkerPool) Stats() Stats {
	return Stats{
		RunningWorkers: wp.pool.RunningWorkers(),
		IdleWorkers:    wp.pool.IdleWorkers(),
		Submitted:      wp.pool.SubmittedTasks(),
		Waiting:        wp.pool.WaitingTasks(),
		Succeeded:      wp.pool.SuccessfulTasks(),
		Failed:         wp.pool.FailedTasks(),
	}
}
