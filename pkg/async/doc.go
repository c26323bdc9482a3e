// Package async provides safe concurrent execution primitives.
//
// # Overview
//
// This package handles goroutine lifecycle management with panic recovery,
// optional timeouts and context cancellation.
//
// # Key Functions
//
// SafeGo: run a function in a goroutine with panic recovery
//
//	async.SafeGo(ctx, log, 0, "enqueue jobs", func(ctx context.Context) error {
//		return enqueue(ctx)
//	})
//
// WorkerPool: a fixed number of workers draining a task queue
//
//	pool := async.NewWorkerPool(ctx, 16, "plugin jobs", 0, log)
//	defer pool.Shutdown(5 * time.Second)
//
//	for _, task := range tasks {
//		pool.Submit(task)
//	}
//
// A task that returns an error or panics is logged and never stops its
// worker.
package async
