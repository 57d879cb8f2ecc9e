// Package lifecycle owns the interactive loop, the worker pools, and the
// per-interaction cleanup that runs when an interaction finishes.
package lifecycle

import (
	"context"
	"errors"
	"sync"
)

// ErrLoopStopped is returned by Run when the loop was already run.
var ErrLoopStopped = errors.New("interactive loop already stopped")

// Loop serializes control mutations onto a single goroutine.
type Loop struct {
	tasks chan func()
	done  chan struct{}
	once  sync.Once
}

func NewLoop(depth int) *Loop {
	if depth <= 0 {
		depth = 64
	}
	return &Loop{
		tasks: make(chan func(), depth),
		done:  make(chan struct{}),
	}
}

// Post enqueues fn. It blocks while the queue is full and returns false once
// the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Run executes posted functions in order until ctx ends. Tasks still queued
// at shutdown are executed before Run returns.
func (l *Loop) Run(ctx context.Context) error {
	started := false
	l.once.Do(func() { started = true })
	if !started {
		return ErrLoopStopped
	}
	defer func() {
		close(l.done)
		for {
			select {
			case fn := <-l.tasks:
				fn()
			default:
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-l.tasks:
			fn()
		}
	}
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
