package async

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// withTimeout returns ctx with a deadline, or a plain cancelable ctx when
// timeout is zero
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

// SafeGo executes a function in a goroutine with:
// - Context cancellation support
// - Panic recovery
// - Optional timeout (zero disables it)
// - Error logging
//
// Use this instead of bare `go func()` to prevent goroutine crashes.
//
// Example:
//
//	SafeGo(ctx, log, 0, "dispatch jobs", func(ctx context.Context) error {
//	    return pool.Submit(task)
//	})
func SafeGo(parentCtx context.Context, log *logrus.Logger, timeout time.Duration, taskName string, fn func(context.Context) error) {
	go func() {
		ctx, cancel := withTimeout(parentCtx, timeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				log.WithFields(logrus.Fields{
					"task":  taskName,
					"panic": r,
					"stack": string(debug.Stack()),
				}).Error("PANIC recovered in goroutine")
			}
		}()

		if err := fn(ctx); err != nil {
			log.WithField("task", taskName).Warnf("Background task failed: %v", err)
		}
	}()
}

// WorkerPool runs tasks on a fixed number of workers. A failing or
// panicking task never affects other tasks.
type WorkerPool struct {
	taskName     string
	timeout      time.Duration
	workCh       chan func(context.Context) error
	doneCh       chan struct{}
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownOnce sync.Once
	log          *logrus.Logger
}

// NewWorkerPool creates a new worker pool. A zero timeout lets each task run
// until it returns.
//
// Example:
//
//	pool := NewWorkerPool(ctx, 16, "plugin jobs", 0, log)
//	defer pool.Shutdown(5 * time.Second)
//
//	pool.Submit(func(ctx context.Context) error {
//	    return runPlugin(ctx, p)
//	})
func NewWorkerPool(ctx context.Context, workers int, taskName string, timeout time.Duration, log *logrus.Logger) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	if log == nil {
		log = logrus.New()
	}
	ctx, cancel := context.WithCancel(ctx)

	pool := &WorkerPool{
		taskName: taskName,
		timeout:  timeout,
		workCh:   make(chan func(context.Context) error, workers*2),
		doneCh:   make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
		log:      log,
	}

	go func() {
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				pool.worker(id)
			}(i)
		}
		wg.Wait()
		close(pool.doneCh)
	}()

	return pool
}

// Submit adds a task to the worker pool. It blocks while the queue is full
// and returns an error if the pool is shut down.
func (p *WorkerPool) Submit(fn func(context.Context) error) (err error) {
	select {
	case <-p.doneCh:
		return fmt.Errorf("worker pool shut down")
	case <-p.ctx.Done():
		return fmt.Errorf("worker pool shut down")
	default:
	}

	defer func() {
		// send on a closed channel when Shutdown races with Submit
		if r := recover(); r != nil {
			err = fmt.Errorf("worker pool shut down")
		}
	}()

	select {
	case p.workCh <- fn:
		return nil
	case <-p.ctx.Done():
		return fmt.Errorf("worker pool shut down")
	}
}

// Shutdown stops accepting tasks and waits up to timeout for queued tasks to
// finish.
func (p *WorkerPool) Shutdown(timeout time.Duration) error {
	var shutdownErr error

	p.shutdownOnce.Do(func() {
		close(p.workCh)

		select {
		case <-p.doneCh:
			p.cancel()
		case <-time.After(timeout):
			p.cancel()
			shutdownErr = fmt.Errorf("worker pool shutdown timed out after %v", timeout)
		}
	})

	return shutdownErr
}

func (p *WorkerPool) worker(id int) {
	for {
		select {
		case <-p.ctx.Done():
			p.drain(id)
			return

		case fn, ok := <-p.workCh:
			if !ok {
				return
			}
			p.run(id, fn)
		}
	}
}

func (p *WorkerPool) run(id int, fn func(context.Context) error) {
	ctx, cancel := withTimeout(p.ctx, p.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			p.log.WithFields(logrus.Fields{
				"worker": id,
				"task":   p.taskName,
				"panic":  r,
				"stack":  string(debug.Stack()),
			}).Error("PANIC recovered in worker")
		}
	}()

	if err := fn(ctx); err != nil {
		p.log.WithFields(logrus.Fields{
			"worker": id,
			"task":   p.taskName,
		}).Warnf("Task failed: %v", err)
	}
}

// drain runs tasks still queued after the pool context was canceled. They
// see a canceled context, so every submitted task is called exactly once.
func (p *WorkerPool) drain(id int) {
	for {
		select {
		case fn, ok := <-p.workCh:
			if !ok {
				return
			}
			p.run(id, fn)
		default:
			return
		}
	}
}
