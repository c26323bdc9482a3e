package async

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestSafeGo(t *testing.T) {
	done := make(chan struct{})

	SafeGo(context.Background(), quietLogger(), time.Second, "test task", func(ctx context.Context) error {
		defer close(done)
		return errors.New("logged, not fatal")
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SafeGo did not execute function")
	}
}

func TestSafeGo_PanicRecovery(t *testing.T) {
	done := make(chan struct{})

	SafeGo(context.Background(), quietLogger(), 0, "test task", func(ctx context.Context) error {
		defer close(done)
		panic("test panic")
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SafeGo did not execute function")
	}
}

func TestSafeGo_Timeout(t *testing.T) {
	result := make(chan error, 1)

	SafeGo(context.Background(), quietLogger(), 20*time.Millisecond, "test task", func(ctx context.Context) error {
		select {
		case <-time.After(time.Second):
			result <- nil
		case <-ctx.Done():
			result <- ctx.Err()
		}
		return nil
	})

	assert.ErrorIs(t, <-result, context.DeadlineExceeded)
}

func TestWorkerPool_Basic(t *testing.T) {
	pool := NewWorkerPool(context.Background(), 4, "test pool", 0, quietLogger())

	var count atomic.Int32
	for i := 0; i < 20; i++ {
		require.NoError(t, pool.Submit(func(ctx context.Context) error {
			count.Add(1)
			return nil
		}))
	}

	require.NoError(t, pool.Shutdown(time.Second))
	assert.Equal(t, int32(20), count.Load())
}

func TestWorkerPool_FailuresAreIsolated(t *testing.T) {
	log, hook := test.NewNullLogger()
	pool := NewWorkerPool(context.Background(), 2, "test pool", 0, log)

	var completed atomic.Int32
	for i := 0; i < 10; i++ {
		require.NoError(t, pool.Submit(func(ctx context.Context) error {
			defer completed.Add(1)
			switch i % 3 {
			case 0:
				return errors.New("task error")
			case 1:
				panic("task panic")
			}
			return nil
		}))
	}

	require.NoError(t, pool.Shutdown(time.Second))
	assert.Equal(t, int32(10), completed.Load())

	var warnings, panics int
	for _, e := range hook.AllEntries() {
		switch e.Level {
		case logrus.WarnLevel:
			warnings++
		case logrus.ErrorLevel:
			panics++
		}
	}
	assert.Equal(t, 4, warnings)
	assert.Equal(t, 3, panics)
}

func TestWorkerPool_TaskTimeout(t *testing.T) {
	pool := NewWorkerPool(context.Background(), 1, "test pool", 20*time.Millisecond, quietLogger())
	defer pool.Shutdown(time.Second)

	result := make(chan error, 1)
	require.NoError(t, pool.Submit(func(ctx context.Context) error {
		<-ctx.Done()
		result <- ctx.Err()
		return ctx.Err()
	}))

	select {
	case err := <-result:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("task was not timed out")
	}
}

func TestWorkerPool_Shutdown(t *testing.T) {
	pool := NewWorkerPool(context.Background(), 2, "test pool", 0, quietLogger())

	var count atomic.Int32
	for i := 0; i < 5; i++ {
		require.NoError(t, pool.Submit(func(ctx context.Context) error {
			count.Add(1)
			return nil
		}))
	}

	require.NoError(t, pool.Shutdown(time.Second))
	assert.Equal(t, int32(5), count.Load(), "queued tasks drain before shutdown completes")

	assert.Error(t, pool.Submit(func(ctx context.Context) error { return nil }))
	assert.NoError(t, pool.Shutdown(time.Second), "shutdown is idempotent")
}

func TestWorkerPool_CancelRunsQueuedTasks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewWorkerPool(ctx, 1, "test pool", 0, quietLogger())

	started := make(chan struct{})
	require.NoError(t, pool.Submit(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}))

	var queuedErr atomic.Value
	require.NoError(t, pool.Submit(func(ctx context.Context) error {
		queuedErr.Store(ctx.Err())
		return nil
	}))

	<-started
	cancel()
	require.NoError(t, pool.Shutdown(time.Second))

	assert.ErrorIs(t, queuedErr.Load().(error), context.Canceled)
}
