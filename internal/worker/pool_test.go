package worker_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/EgehanKilicarslan/sessionkeeper/internal/testutil"
	"github.com/EgehanKilicarslan/sessionkeeper/internal/worker"
)

func TestNewPool(t *testing.T) {
	pool := worker.NewPool(testutil.TestLogger())

	if pool == nil {
		t.Fatal("expected non-nil pool")
	}
	if pool.Context() == nil {
		t.Fatal("expected non-nil context")
	}
}

func TestPoolSubmit(t *testing.T) {
	pool := worker.NewPool(testutil.TestLogger())

	var counter int32

	for i := 0; i < 10; i++ {
		pool.Submit(func(ctx context.Context) {
			atomic.AddInt32(&counter, 1)
		})
	}

	if !pool.Shutdown(5 * time.Second) {
		t.Fatal("expected shutdown to complete")
	}

	if atomic.LoadInt32(&counter) != 10 {
		t.Errorf("expected counter to be 10, got %d", counter)
	}
}

func TestPoolShutdownCancelsContext(t *testing.T) {
	pool := worker.NewPool(testutil.TestLogger())

	stopped := make(chan struct{})
	pool.Submit(func(ctx context.Context) {
		<-ctx.Done()
		close(stopped)
	})

	if !pool.Shutdown(time.Second) {
		t.Fatal("expected shutdown to complete")
	}

	select {
	case <-stopped:
	default:
		t.Fatal("expected task to observe cancellation")
	}

	if pool.Context().Err() == nil {
		t.Error("expected pool context to be cancelled")
	}
}

func TestPoolShutdownTimeout(t *testing.T) {
	pool := worker.NewPool(testutil.TestLogger())

	release := make(chan struct{})
	defer close(release)

	pool.Submit(func(ctx context.Context) {
		<-release
	})

	if pool.Shutdown(50 * time.Millisecond) {
		t.Error("expected shutdown to report timeout")
	}
}

func TestPoolEvery(t *testing.T) {
	pool := worker.NewPool(testutil.TestLogger())

	var runs int32
	ticked := make(chan struct{}, 16)

	pool.Every("test", 10*time.Millisecond, func(ctx context.Context) {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("expected each run to carry a deadline")
		}
		atomic.AddInt32(&runs, 1)
		select {
		case ticked <- struct{}{}:
		default:
		}
	})

	for i := 0; i < 3; i++ {
		select {
		case <-ticked:
		case <-time.After(2 * time.Second):
			t.Fatalf("periodic task ran %d times, expected at least 3", atomic.LoadInt32(&runs))
		}
	}

	if !pool.Shutdown(time.Second) {
		t.Fatal("expected periodic task to stop on shutdown")
	}

	after := atomic.LoadInt32(&runs)
	time.Sleep(30 * time.Millisecond)
	if atomic.LoadInt32(&runs) != after {
		t.Error("periodic task kept running after shutdown")
	}
}
