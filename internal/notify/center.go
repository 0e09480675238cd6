// Package notify provides the broadcast channel used to tell observers that
// registry state changed. Delivery is synchronous: Post returns only after
// every current observer and sink has run, in registration order.
//
// A Center is not safe for concurrent use; it lives on the main queue.
package notify

import (
	"slices"
	"time"

	"go.uber.org/zap"
)

// Name identifies a broadcast.
type Name string

// Event is a payload-free broadcast. Observers re-query the sender for state.
type Event struct {
	// Name is the broadcast identifier.
	Name Name
	// Sender labels the component that posted the event.
	Sender string
	// TS is the UTC time the event was posted.
	TS time.Time
}

// Handler receives events for a subscribed name.
type Handler func(Event)

// Sink observes every event regardless of name, after named handlers ran.
type Sink interface {
	Consume(evt Event)
}

// Subscription cancels a handler registration.
type Subscription interface {
	Cancel()
}

// Config controls Center construction.
//   - Clock: time source for Event.TS (defaults to time.Now in UTC).
//   - Logger: optional structured logger.
type Config struct {
	Clock  func() time.Time
	Logger *zap.Logger
}

type entry struct {
	name   Name
	fn     Handler
	active bool
}

// Center fans events out to subscribed handlers and sinks.
type Center struct {
	entries []*entry
	sinks   []Sink
	clock   func() time.Time
	logger  *zap.Logger
}

// NewCenter builds a Center delivering to sinks in addition to subscribers.
func NewCenter(cfg Config, sinks ...Sink) *Center {
	clock := cfg.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Center{
		sinks:  slices.DeleteFunc(slices.Clone(sinks), func(s Sink) bool { return s == nil }),
		clock:  clock,
		logger: logger,
	}
}

// Subscribe registers fn for events named name.
func (c *Center) Subscribe(name Name, fn Handler) Subscription {
	e := &entry{name: name, fn: fn, active: true}
	c.entries = append(c.entries, e)
	return &subscription{center: c, entry: e}
}

// Post delivers an event named name to current subscribers, then to sinks.
// Handlers subscribed while Post is running are not guaranteed to see it.
func (c *Center) Post(name Name, sender string) {
	evt := Event{Name: name, Sender: sender, TS: c.clock()}
	delivered := 0
	for _, e := range slices.Clone(c.entries) {
		if !e.active || e.name != name {
			continue
		}
		e.fn(evt)
		delivered++
	}
	for _, sink := range c.sinks {
		sink.Consume(evt)
	}
	c.logger.Debug("broadcast posted",
		zap.String("name", string(name)),
		zap.String("sender", sender),
		zap.Int("handlers", delivered),
	)
}

type subscription struct {
	center *Center
	entry  *entry
}

func (s *subscription) Cancel() {
	if !s.entry.active {
		return
	}
	s.entry.active = false
	s.center.entries = slices.DeleteFunc(s.center.entries, func(e *entry) bool {
		return e == s.entry
	})
}
