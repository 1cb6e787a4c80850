// Package memory runs invoice jobs on an in-process worker pool. Jobs are lost
// if the process exits before they run.
package memory

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/navi/orderflow/internal/invoicing/queue"
)

var (
	ErrQueueFull = errors.New("invoice queue is full")
	ErrClosed    = errors.New("invoice queue is closed")
)

type Pool struct {
	runner  queue.Runner
	workers int
	logger  *slog.Logger

	mu     sync.RWMutex
	jobs   chan string
	closed bool
}

func NewPool(runner queue.Runner, workers, buffer int, logger *slog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if buffer < 0 {
		buffer = 0
	}
	return &Pool{
		runner:  runner,
		workers: workers,
		logger:  logger,
		jobs:    make(chan string, buffer),
	}
}

// EnqueueInvoice hands the job to the pool without blocking the caller.
func (p *Pool) EnqueueInvoice(_ context.Context, orderID string) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrClosed
	}
	select {
	case p.jobs <- orderID:
		return nil
	default:
		return ErrQueueFull
	}
}

// Start runs the workers until ctx is cancelled or Close has been called and
// the buffered jobs are drained.
func (p *Pool) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := range p.workers {
		g.Go(func() error {
			p.logger.DebugContext(ctx, "invoice worker started", "worker", i)
			for {
				select {
				case <-ctx.Done():
					return nil
				case orderID, ok := <-p.jobs:
					if !ok {
						return nil
					}
					// Run logs its own failures, alerts included.
					_ = p.runner.Run(ctx, orderID)
				}
			}
		})
	}
	return g.Wait()
}

// Close stops accepting jobs. Workers finish what is buffered and exit.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.jobs)
}
