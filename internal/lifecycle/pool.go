package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rbright/vcinteract/internal/logging"
)

var (
	ErrPoolFull   = errors.New("worker pool queue full")
	ErrPoolClosed = errors.New("worker pool closed")
)

// Task runs on a pool worker.
type Task func(ctx context.Context)

// Pool runs tasks on a fixed number of workers fed by a bounded queue.
type Pool struct {
	name   string
	logger *slog.Logger

	queue chan Task
	group *errgroup.Group
	ctx   context.Context

	mu     sync.Mutex
	closed bool
}

// NewPool starts workers goroutines bound to ctx.
func NewPool(ctx context.Context, logger *slog.Logger, name string, workers, depth int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if depth <= 0 {
		depth = 16
	}
	group, groupCtx := errgroup.WithContext(ctx)
	p := &Pool{
		name:   name,
		logger: logging.OrDiscard(logger),
		queue:  make(chan Task, depth),
		group:  group,
		ctx:    groupCtx,
	}
	for range workers {
		group.Go(p.work)
	}
	return p
}

// Submit enqueues task without blocking.
func (p *Pool) Submit(task Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.queue <- task:
		return nil
	default:
		return ErrPoolFull
	}
}

// Close stops accepting tasks and waits for queued ones to finish.
func (p *Pool) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
	return p.group.Wait()
}

func (p *Pool) work() error {
	for task := range p.queue {
		p.run(task)
	}
	return nil
}

func (p *Pool) run(task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("worker task panicked", "pool", p.name, "panic", fmt.Sprint(r))
		}
	}()
	task(p.ctx)
}
