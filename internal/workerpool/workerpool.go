package workerpool

import (
	"context"
	"errors"
	"runtime"
	"sync"
)

// ErrPoolClosed is returned by Submit after Close.
var ErrPoolClosed = errors.New("worker pool closed")

// Task is one unit of per-file work. Failures are recorded by the task
// itself; the pool never stops because one task failed.
type Task func(ctx context.Context)

// Pool runs tasks on a fixed number of goroutines.
type Pool struct {
	tasks   chan Task
	wg      sync.WaitGroup
	workers int
	done    <-chan struct{}

	mu     sync.Mutex
	closed bool
}

// New creates a pool. workers <= 0 uses runtime.NumCPU(); queue <= 0
// uses twice the worker count.
func New(workers, queue int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if queue <= 0 {
		queue = workers * 2
	}
	return &Pool{
		tasks:   make(chan Task, queue),
		workers: workers,
	}
}

// Workers returns the number of goroutines the pool runs.
func (p *Pool) Workers() int {
	return p.workers
}

// Start launches the workers. They exit when ctx is done or the pool is
// closed and drained.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	p.done = ctx.Done()
	p.mu.Unlock()
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case task, ok := <-p.tasks:
					if !ok {
						return
					}
					task(ctx)
				}
			}
		}()
	}
}

// Submit queues a task, blocking while the queue is full. It returns
// ErrPoolClosed after Close and context.Canceled once the context given
// to Start is done.
func (p *Pool) Submit(task Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.tasks <- task:
		return nil
	case <-p.done:
		return context.Canceled
	}
}

// Close stops accepting tasks and waits for queued ones to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()
	p.wg.Wait()
}

// Each runs fn for every index in [0, n) on a fresh pool and returns
// once all calls finished or ctx was cancelled.
func Each(ctx context.Context, workers, n int, fn func(ctx context.Context, i int)) error {
	p := New(workers, 0)
	p.Start(ctx)
	for i := 0; i < n; i++ {
		i := i
		if err := ctx.Err(); err != nil {
			p.Close()
			return err
		}
		if err := p.Submit(func(ctx context.Context) { fn(ctx, i) }); err != nil {
			p.Close()
			return err
		}
	}
	p.Close()
	return ctx.Err()
}
