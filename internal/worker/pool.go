// Package worker runs batches of independent tasks on a fixed number of goroutines.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Task represents a unit of work to be processed by the pool
type Task func(ctx context.Context) error

// Stats summarizes what a pool did.
type Stats struct {
	Submitted int64
	Succeeded int64
	Failed    int64
	Dropped   int64
}

// Pool manages concurrent processing of tasks
type Pool struct {
	workerCount int
	taskQueue   chan Task
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	closed      bool
	closeMux    sync.Mutex
	logger      *slog.Logger

	submitted atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

// New creates a pool bound to ctx. Cancelling ctx stops the workers.
func New(ctx context.Context, workerCount int, logger *slog.Logger) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	poolCtx, cancel := context.WithCancel(ctx)
	return &Pool{
		workerCount: workerCount,
		taskQueue:   make(chan Task, workerCount*2),
		ctx:         poolCtx,
		cancel:      cancel,
		logger:      logger.With("component", "worker_pool"),
	}
}

// Start launches worker goroutines
func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.logger.Info("worker_pool_started", "workers", p.workerCount)
}

// Submit queues a task, blocking while the queue is full.
// It returns false if the pool is shutting down.
func (p *Pool) Submit(task Task) bool {
	p.closeMux.Lock()
	defer p.closeMux.Unlock()
	if p.closed {
		p.dropped.Add(1)
		return false
	}

	select {
	case p.taskQueue <- task:
		p.submitted.Add(1)
		return true
	case <-p.ctx.Done():
		p.dropped.Add(1)
		p.logger.Debug("worker_pool_task_dropped", "reason", "shutting_down")
		return false
	}
}

// Wait closes the queue and blocks until all queued tasks complete
func (p *Pool) Wait() Stats {
	p.closeMux.Lock()
	if !p.closed {
		close(p.taskQueue)
		p.closed = true
	}
	p.closeMux.Unlock()

	p.wg.Wait()
	s := p.Stats()
	p.logger.Info("worker_pool_completed",
		"succeeded", s.Succeeded,
		"failed", s.Failed,
		"dropped", s.Dropped,
	)
	return s
}

// Shutdown cancels all workers and waits for them to exit
func (p *Pool) Shutdown() Stats {
	p.logger.Info("worker_pool_shutting_down")
	p.cancel()
	return p.Wait()
}

// Stats returns the counters so far.
func (p *Pool) Stats() Stats {
	return Stats{
		Submitted: p.submitted.Load(),
		Succeeded: p.succeeded.Load(),
		Failed:    p.failed.Load(),
		Dropped:   p.dropped.Load(),
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for task := range p.taskQueue {
		select {
		case <-p.ctx.Done():
			// drain without running
			p.dropped.Add(1)
			continue
		default:
		}

		if err := task(p.ctx); err != nil {
			p.failed.Add(1)
			p.logger.Warn("worker_task_failed", "worker", id, "error", err)
			continue
		}
		p.succeeded.Add(1)
	}
}
