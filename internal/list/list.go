// Package list provides an ordered, observable collection of identity-bearing
// items and key lookups layered on top of it.
//
// An IndexedList is not safe for concurrent use. Callers serialize access,
// normally by running every operation on the process main queue.
package list

import (
	"errors"
	"fmt"
	"slices"
)

// ErrPositionOutOfRange is returned when a mutation targets a position outside the list.
var ErrPositionOutOfRange = errors.New("position out of range")

// Change describes one item touched by a mutation. For replacements Item is the
// new value and Previous the value it replaced; for removals Item is the removed value.
type Change[T any] struct {
	Position int
	Item     T
	Previous T
}

// Changes groups the descriptors emitted by a single mutation.
type Changes[T any] struct {
	Added    []Change[T]
	Replaced []Change[T]
	Removed  []Change[T]
}

// Observer receives the changes of every mutation.
type Observer[T any] func(Changes[T])

// Subscription cancels an observer registration.
type Subscription interface {
	Cancel()
}

type observerEntry[T any] struct {
	fn     Observer[T]
	active bool
}

// IndexedList is an ordered sequence of items. Positions are only stable until
// the next mutation.
type IndexedList[T any] struct {
	items     []T
	observers []*observerEntry[T]
}

// New returns a list holding a copy of items.
func New[T any](items ...T) *IndexedList[T] {
	return &IndexedList[T]{items: slices.Clone(items)}
}

// Len returns the number of items.
func (l *IndexedList[T]) Len() int {
	return len(l.items)
}

// At returns the item at position.
func (l *IndexedList[T]) At(position int) (T, bool) {
	if position < 0 || position >= len(l.items) {
		var zero T
		return zero, false
	}
	return l.items[position], true
}

// Snapshot returns a copy of the current items in order.
func (l *IndexedList[T]) Snapshot() []T {
	out := make([]T, len(l.items))
	copy(out, l.items)
	return out
}

// Append adds items to the end of the list.
func (l *IndexedList[T]) Append(items ...T) {
	if len(items) == 0 {
		return
	}
	start := len(l.items)
	l.items = append(l.items, items...)
	added := make([]Change[T], len(items))
	for i, item := range items {
		added[i] = Change[T]{Position: start + i, Item: item}
	}
	l.deliver(Changes[T]{Added: added})
}

// ReplaceAt swaps the item at position for value.
func (l *IndexedList[T]) ReplaceAt(position int, value T) error {
	if position < 0 || position >= len(l.items) {
		return fmt.Errorf("replace at %d (len %d): %w", position, len(l.items), ErrPositionOutOfRange)
	}
	previous := l.items[position]
	l.items[position] = value
	l.deliver(Changes[T]{Replaced: []Change[T]{{Position: position, Item: value, Previous: previous}}})
	return nil
}

// RemoveAt deletes the item at position; later items shift down by one.
func (l *IndexedList[T]) RemoveAt(position int) error {
	if position < 0 || position >= len(l.items) {
		return fmt.Errorf("remove at %d (len %d): %w", position, len(l.items), ErrPositionOutOfRange)
	}
	removed := l.items[position]
	l.items = slices.Delete(l.items, position, position+1)
	l.deliver(Changes[T]{Removed: []Change[T]{{Position: position, Item: removed}}})
	return nil
}

// Observe registers fn for every subsequent mutation. Observers run
// synchronously in registration order before the mutating call returns.
func (l *IndexedList[T]) Observe(fn Observer[T]) Subscription {
	entry := &observerEntry[T]{fn: fn, active: true}
	l.observers = append(l.observers, entry)
	return &subscription[T]{list: l, entry: entry}
}

// deliver walks the observers registered when delivery starts; observers added
// by a callback wait for the next mutation.
func (l *IndexedList[T]) deliver(changes Changes[T]) {
	current := slices.Clone(l.observers)
	for _, entry := range current {
		if entry.active {
			entry.fn(changes)
		}
	}
}

type subscription[T any] struct {
	list  *IndexedList[T]
	entry *observerEntry[T]
}

func (s *subscription[T]) Cancel() {
	if !s.entry.active {
		return
	}
	s.entry.active = false
	s.list.observers = slices.DeleteFunc(s.list.observers, func(e *observerEntry[T]) bool {
		return e == s.entry
	})
}
