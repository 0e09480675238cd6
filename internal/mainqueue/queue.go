// Package mainqueue provides the single serialized execution context that owns
// the site registry and the crawl result index. Work submitted to a Queue runs
// one item at a time, in submission order, on the goroutine that called Run.
package mainqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ErrClosed is returned when work is submitted after Close.
var ErrClosed = errors.New("main queue closed")

// Dispatcher schedules fn to run on a serialized context. Implementations must
// never run fn on the caller's stack.
type Dispatcher interface {
	Dispatch(fn func())
}

// Queue is a FIFO of work drained by a single goroutine.
type Queue struct {
	ch      chan func()
	logger  *zap.Logger
	closeMu sync.RWMutex
	closed  bool
	done    chan struct{}
}

// New constructs a Queue buffering up to depth pending items.
func New(depth int, logger *zap.Logger) *Queue {
	if depth <= 0 {
		depth = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{
		ch:     make(chan func(), depth),
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Dispatch enqueues fn. Work dispatched after Close is dropped with a warning.
func (q *Queue) Dispatch(fn func()) {
	if err := q.enqueue(context.Background(), fn); err != nil {
		q.logger.Warn("dropping main queue work", zap.Error(err))
	}
}

// Sync runs fn on the queue and waits for it to finish. It must not be called
// from work already running on the queue.
func (q *Queue) Sync(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := q.enqueue(ctx, func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("main queue sync: %w", ctx.Err())
	case <-q.done:
		// Run may have exited with fn still pending.
		select {
		case <-finished:
			return nil
		default:
			return ErrClosed
		}
	}
}

func (q *Queue) enqueue(ctx context.Context, fn func()) error {
	q.closeMu.RLock()
	defer q.closeMu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("main queue enqueue: %w", ctx.Err())
	case q.ch <- fn:
		return nil
	}
}

// Run drains the queue until ctx ends or Close is called and the remaining
// work has run.
func (q *Queue) Run(ctx context.Context) {
	defer close(q.done)
	for {
		select {
		case <-ctx.Done():
			return
		case fn, ok := <-q.ch:
			if !ok {
				return
			}
			q.run(fn)
		}
	}
}

func (q *Queue) run(fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			q.logger.Error("main queue work panicked", zap.Any("panic", rec))
		}
	}()
	fn()
}

// Close stops accepting work. Pending work still runs if Run is active.
// Calling Close more than once is safe.
func (q *Queue) Close() {
	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}
