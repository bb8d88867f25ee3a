// Package worker provides the bounded goroutine pool the tile manager
// schedules background loads on.
package worker

import (
	"context"
	"sync"
)

// Task is a unit of background work.
type Task struct {
	Ctx  context.Context
	Work func() error
}

// Pool runs tasks on a bounded number of goroutines. Tasks submitted
// while the queue is full are dropped; tile loads are retried naturally
// on the next frame, so dropping is cheaper than queueing without bound.
type Pool struct {
	tasks chan Task
	quit  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
}

// NewPool creates a pool with the given number of workers.
func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{
		tasks: make(chan Task, 128),
		quit:  make(chan struct{}),
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.run()
	}
	return p
}

func (p *Pool) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.quit:
			return
		case task := <-p.tasks:
			if task.Ctx != nil && task.Ctx.Err() != nil {
				continue
			}
			_ = task.Work()
		}
	}
}

// Submit enqueues a task. It reports whether the task was accepted.
func (p *Pool) Submit(task Task) bool {
	select {
	case <-p.quit:
		return false
	default:
	}
	select {
	case p.tasks <- task:
		return true
	default:
		return false
	}
}

// Shutdown stops the workers. Queued tasks are abandoned. Idempotent.
func (p *Pool) Shutdown() {
	p.once.Do(func() { close(p.quit) })
	p.wg.Wait()
}
