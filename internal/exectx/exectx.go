// Package exectx carries the per-run state that the spec's fiber-local
// "current execution context" singleton held: the observer list, the
// pending user-facing message queue, and output-capture bookkeeping.
//
// Design Note 9 of the spec calls out that a Ruby Fiber-local global would
// be a mistake to port literally; context.Context's WithValue/value chain is
// the idiomatic Go replacement; ExecutionContext here is the payload carried
// on that chain, not a singleton itself.
package exectx

import (
	"context"
	"sync"
)

type ctxKey struct{}

// Message is one user-queued notification (Taski.Message in the spec). The
// root package's Engine.Run prints the queued messages to stdout after the
// run's progress display has stopped.
type Message struct {
	Text string
	Data map[string]any
}

// ExecutionContext is the per-run mutable state shared by every fiber in a
// single Run call. It is safe for concurrent use since several tasks may be
// actively running at once.
type ExecutionContext struct {
	mu        sync.Mutex
	observers []Observer
	messages  []Message
}

// Observer receives lifecycle notifications. It mirrors the shape of the
// teacher's trace.Sink, generalized from "record one trace event" to the
// richer notification set the spec requires (§4.6).
type Observer interface {
	Notify(event string, fields map[string]any)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(event string, fields map[string]any)

func (f ObserverFunc) Notify(event string, fields map[string]any) { f(event, fields) }

// New creates an empty ExecutionContext.
func New() *ExecutionContext {
	return &ExecutionContext{}
}

// WithContext returns a derived context.Context carrying ec.
func WithContext(ctx context.Context, ec *ExecutionContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, ec)
}

// FromContext retrieves the ExecutionContext installed by WithContext, if
// any. Code that might run outside a managed Run call (tests, direct
// construction) must tolerate a nil return.
func FromContext(ctx context.Context) *ExecutionContext {
	ec, _ := ctx.Value(ctxKey{}).(*ExecutionContext)
	return ec
}

// AddObserver registers an observer for the lifetime of this run.
func (ec *ExecutionContext) AddObserver(o Observer) {
	if ec == nil || o == nil {
		return
	}
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.observers = append(ec.observers, o)
}

// Notify dispatches one event to every registered observer, in registration
// order. Each call runs under its own recover barrier, so a panicking
// observer is isolated from the rest. internal/observe.Bus's typed emit
// helpers broadcast through this method.
func (ec *ExecutionContext) Notify(event string, fields map[string]any) {
	if ec == nil {
		return
	}
	ec.mu.Lock()
	observers := make([]Observer, len(ec.observers))
	copy(observers, ec.observers)
	ec.mu.Unlock()

	for _, o := range observers {
		notifySafely(o, event, fields)
	}
}

func notifySafely(o Observer, event string, fields map[string]any) {
	defer func() { recover() }()
	o.Notify(event, fields)
}

// QueueMessage appends a user-facing message (Taski::Message), to be returned
// by the next FlushMessages call.
func (ec *ExecutionContext) QueueMessage(m Message) {
	if ec == nil {
		return
	}
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.messages = append(ec.messages, m)
}

// FlushMessages returns and clears all queued messages.
func (ec *ExecutionContext) FlushMessages() []Message {
	if ec == nil {
		return nil
	}
	ec.mu.Lock()
	defer ec.mu.Unlock()
	out := ec.messages
	ec.messages = nil
	return out
}
