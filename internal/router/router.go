// Package router multiplexes per-task output back onto one consumer, the
// way a single terminal has to interleave output from many concurrently
// running tasks. Each task writes through its RunContext.WriteOut; reading
// happens on a single dispatcher goroutine so display code never has to
// synchronize itself.
//
// Grounded on the teacher's stream handling idiom (internal/core.Runner
// capturing a command's stdout/stderr into a io.Writer pair) but inverted:
// the teacher shells out to read an external process's real pipe, where
// here fiber.RunContext.WriteOut hands us already-produced bytes directly,
// so the "pipe" is a buffered channel rather than an os.Pipe — there is no
// file descriptor to go stale, only the channel-closed race the bad-file-
// descriptor handling below accounts for.
package router

import (
	"sync"

	"taski/internal/fiber"
)

// Line is one chunk of attributable output, surfaced to whatever display is
// currently subscribed.
type Line struct {
	Task string
	Data []byte
}

// Router owns the fan-in channel every running task's RunContext.WriteOut
// sends into, and fans it back out to zero or more subscribers.
type Router struct {
	ch   chan fiber.OutputChunk
	disp map[string]string // Key.String() -> display name, set via Register

	mu   sync.Mutex
	subs []chan<- Line

	closeOnce sync.Once
	closed    chan struct{}
}

// New creates a Router and returns the channel to hand to
// fiber.Executor.SetOutput.
func New(buffer int) (*Router, chan<- fiber.OutputChunk) {
	r := &Router{
		ch:     make(chan fiber.OutputChunk, buffer),
		disp:   make(map[string]string),
		closed: make(chan struct{}),
	}
	return r, r.ch
}

// Register associates a task key with a human-readable display name, used
// to label routed lines. Safe to call before the task starts.
func (r *Router) Register(key fiber.Key, display string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disp[key.String()] = display
}

// Subscribe adds a consumer channel. The router never closes subscriber
// channels itself — callers drain until Run's Close() fires and they see
// the router's own Done() close.
func (r *Router) Subscribe(ch chan<- Line) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, ch)
}

// Done reports when the dispatcher loop has exited.
func (r *Router) Done() <-chan struct{} { return r.closed }

// Run is the single dispatcher goroutine: it reads chunks off the fan-in
// channel and republishes them, labeled, to every subscriber. It returns
// when the channel is closed (by Close) and the buffered chunks are drained.
func (r *Router) Run() {
	defer close(r.closed)
	for chunk := range r.ch {
		r.mu.Lock()
		display, ok := r.disp[chunk.Key.String()]
		subs := make([]chan<- Line, len(r.subs))
		copy(subs, r.subs)
		r.mu.Unlock()
		if !ok {
			display = chunk.Key.Class
		}
		line := Line{Task: display, Data: chunk.Data}
		for _, sub := range subs {
			r.sendSafely(sub, line)
		}
	}
}

// sendSafely tolerates a subscriber whose receiving side has already gone
// away (a closed-channel send would panic); this is the equivalent of the
// teacher pattern of tolerating a bad-file-descriptor error on a stream that
// the consumer already tore down.
func (r *Router) sendSafely(ch chan<- Line, line Line) {
	defer func() { recover() }()
	select {
	case ch <- line:
	default:
	}
}

// Close stops accepting new output and lets Run drain and exit.
func (r *Router) Close() {
	r.closeOnce.Do(func() { close(r.ch) })
}
