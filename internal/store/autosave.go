package store

import (
	"sync"

	"github.com/JakeFAU/site-audit/internal/list"
	"github.com/JakeFAU/site-audit/internal/mainqueue"
)

// Saver persists a full snapshot of items.
type Saver[T any] interface {
	Save(items []T) error
}

// AutoSaver persists a list after every change. Snapshots are taken on the
// caller's serialized context and written by a background goroutine; when
// writes fall behind only the newest snapshot is kept. The writer never blocks
// on the dispatcher: failures are parked and drained on the serialized context,
// either by a dispatched flush or by Close.
type AutoSaver[T any] struct {
	saver    Saver[T]
	sub      list.Subscription
	dispatch mainqueue.Dispatcher
	onError  func(error)

	mu      sync.Mutex
	closed  bool
	failed  []error
	pending chan []T
	done    chan struct{}
}

// AutoSave observes l and saves it through s on every mutation. Save failures
// are delivered to onError on dispatch; onError may be nil.
func AutoSave[T any](s Saver[T], l *list.IndexedList[T], dispatch mainqueue.Dispatcher, onError func(error)) *AutoSaver[T] {
	a := &AutoSaver[T]{
		saver:    s,
		dispatch: dispatch,
		onError:  onError,
		pending:  make(chan []T, 1),
		done:     make(chan struct{}),
	}
	a.sub = l.Observe(func(list.Changes[T]) {
		a.enqueue(l.Snapshot())
	})
	go a.loop()
	return a
}

// SaveNow queues a save of snapshot outside the change stream.
func (a *AutoSaver[T]) SaveNow(snapshot []T) {
	a.enqueue(snapshot)
}

func (a *AutoSaver[T]) enqueue(snapshot []T) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	select {
	case <-a.pending:
	default:
	}
	a.pending <- snapshot
}

func (a *AutoSaver[T]) loop() {
	defer close(a.done)
	for snapshot := range a.pending {
		if err := a.saver.Save(snapshot); err != nil {
			a.report(err)
		}
	}
}

func (a *AutoSaver[T]) report(err error) {
	if a.onError == nil {
		return
	}
	a.mu.Lock()
	a.failed = append(a.failed, err)
	schedule := !a.closed && a.dispatch != nil
	a.mu.Unlock()
	if schedule {
		go a.dispatch.Dispatch(a.flushErrors)
	}
}

// flushErrors delivers parked failures. It runs on the serialized context.
func (a *AutoSaver[T]) flushErrors() {
	a.mu.Lock()
	failed := a.failed
	a.failed = nil
	a.mu.Unlock()
	for _, err := range failed {
		a.onError(err)
	}
}

// Close stops observing, writes any pending snapshot and waits for the writer,
// then delivers failures not yet reported. Close must run on the same context
// that mutates the list.
func (a *AutoSaver[T]) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.sub.Cancel()
	close(a.pending)
	a.mu.Unlock()
	<-a.done
	if a.onError != nil {
		a.flushErrors()
	}
}
