package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Pool owns the service's background goroutines so shutdown can cancel and
// wait for them in one place
type Pool struct {
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
}

// NewPool creates a new worker pool
func NewPool(logger *slog.Logger) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
}

// Submit runs task on its own goroutine with the pool's context
func (p *Pool) Submit(task func(ctx context.Context)) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		task(p.ctx)
	}()
}

// Every runs task once immediately and then on each tick of interval until
// the pool shuts down. Each run gets its own timeout derived from interval.
func (p *Pool) Every(name string, interval time.Duration, task func(ctx context.Context)) {
	p.Submit(func(ctx context.Context) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		p.logger.Info("⏱️ [Worker] Periodic task started", "task", name, "interval", interval)
		for {
			p.runOnce(ctx, interval, task)

			select {
			case <-ctx.Done():
				p.logger.Info("🛑 [Worker] Periodic task stopped", "task", name)
				return
			case <-ticker.C:
			}
		}
	})
}

func (p *Pool) runOnce(parent context.Context, timeout time.Duration, task func(ctx context.Context)) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()
	task(ctx)
}

// Context returns the pool's context
func (p *Pool) Context() context.Context {
	return p.ctx
}

// Shutdown signals all workers to stop and waits up to timeout for them.
// It reports whether every worker finished in time.
func (p *Pool) Shutdown(timeout time.Duration) bool {
	p.logger.Info("🛑 [Worker] Initiating graceful shutdown...")

	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("✅ [Worker] All background tasks completed")
		return true
	case <-time.After(timeout):
		p.logger.Warn("⚠️ [Worker] Shutdown timeout exceeded, some tasks may not have completed",
			"timeout", timeout,
		)
		return false
	}
}
