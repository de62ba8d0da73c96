// Package registry tracks one Wrapper per distinct task identity and the
// state machine each wrapper moves through. It has no knowledge of how a
// task is actually run — internal/fiber owns that — it only owns the
// "created at most once per identity" guarantee and the completion latch
// dependents park on.
//
// The state set and its allowed transitions are adapted from the teacher
// repository's internal/dag/state.go and state_machine.go, trimmed to the
// five states the spec defines (no Skipped/Cached: Taski has no incremental
// build cache, and failure reaches dependents by raising into their
// Need call rather than by a cascading Skip mark).
package registry

import (
	"fmt"
	"sync"
	"time"
)

// TaskState is one of a wrapper's lifecycle states.
type TaskState string

const (
	Pending   TaskState = "pending"
	Ready     TaskState = "ready"
	Running   TaskState = "running"
	Completed TaskState = "completed"
	Failed    TaskState = "failed"
)

var allowedTransition = map[TaskState]map[TaskState]bool{
	Pending:   {Ready: true, Running: true},
	Ready:     {Running: true},
	Running:   {Completed: true, Failed: true},
	Completed: {},
	Failed:    {},
}

// IsTerminal reports whether a state has no further transitions.
func IsTerminal(s TaskState) bool {
	return s == Completed || s == Failed
}

// Transition validates and reports whether moving from `from` to `to` is
// legal. It does not mutate anything; callers apply the new state under the
// same lock that serialized the check (mirrors the teacher's
// isAllowedTransition / Transition split).
func Transition(from, to TaskState) error {
	if next, ok := allowedTransition[from]; ok && next[to] {
		return nil
	}
	return fmt.Errorf("registry: illegal transition %s -> %s", from, to)
}

// Key identifies a wrapper. Unlike the root package's Identity, Key is a
// plain comparable string pair: the registry is generic over however the
// caller chooses to hash arguments, so it never needs to know that Args is
// a map[string]any (which is itself not a valid, comparable map key).
type Key struct {
	Class string
	Hash  string
}

func (k Key) String() string { return k.Class + "@" + k.Hash }

// Wrapper is the registry's single record for one task identity: its
// current state, its instance (opaque to the registry — stored as `any` so
// this package never imports the engine or public API types), and the
// completion latch dependents block on.
type Wrapper struct {
	Key     Key
	Display string // human-readable identity, for logs/errors

	mu       sync.Mutex
	state    TaskState
	instance any
	err      error

	startedAt   time.Time
	completedAt time.Time

	// done is closed exactly once, when the wrapper reaches a terminal
	// state. Dependents select on it instead of polling state.
	done chan struct{}

	// waiters is the set of identities recorded as parked on this wrapper
	// via AddWaiter. The registry does not interpret it, and the fiber
	// executor does not consult it (its cycle detection walks the call
	// chain instead).
	waiters map[Key]bool
}

func newWrapper(k Key, display string, instance any) *Wrapper {
	return &Wrapper{
		Key:      k,
		Display:  display,
		state:    Pending,
		instance: instance,
		done:     make(chan struct{}),
		waiters:  make(map[Key]bool),
	}
}

// State returns the wrapper's current state under lock.
func (w *Wrapper) State() TaskState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Instance returns the task instance stored at creation time.
func (w *Wrapper) Instance() any {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.instance
}

// Err returns the terminal error, if the wrapper failed.
func (w *Wrapper) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Done returns the channel that closes when the wrapper becomes terminal.
func (w *Wrapper) Done() <-chan struct{} {
	return w.done
}

// MarkRunning transitions Pending/Ready -> Running.
func (w *Wrapper) MarkRunning() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := Transition(w.state, Running); err != nil {
		return err
	}
	w.state = Running
	w.startedAt = time.Now()
	return nil
}

// MarkDone transitions Running -> Completed or Failed, records err (nil on
// success), and releases every dependent parked on Done().
func (w *Wrapper) MarkDone(err error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	next := Completed
	if err != nil {
		next = Failed
	}
	if terr := Transition(w.state, next); terr != nil {
		return terr
	}
	w.state = next
	w.err = err
	w.completedAt = time.Now()
	close(w.done)
	return nil
}

// AddWaiter / RemoveWaiter track which identities are parked on this
// wrapper. Nothing in the engine calls them; internal/fiber detects circular
// dependencies from its own call chain.
func (w *Wrapper) AddWaiter(k Key) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.waiters[k] = true
}

func (w *Wrapper) RemoveWaiter(k Key) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.waiters, k)
}

func (w *Wrapper) Waiters() []Key {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Key, 0, len(w.waiters))
	for k := range w.waiters {
		out = append(out, k)
	}
	return out
}

// Registry owns the "at most one wrapper per identity" guarantee.
type Registry struct {
	mu       sync.Mutex
	wrappers map[Key]*Wrapper
}

func New() *Registry {
	return &Registry{wrappers: make(map[Key]*Wrapper)}
}

// GetOrCreate returns the existing wrapper for k, or calls build to
// construct a new instance and registers it. build is only ever invoked
// once per key, even under concurrent callers, matching the spec's
// "exactly one instance per identity" invariant.
func (r *Registry) GetOrCreate(k Key, display string, build func() any) (w *Wrapper, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.wrappers[k]; ok {
		return existing, false
	}
	w = newWrapper(k, display, build())
	r.wrappers[k] = w
	return w, true
}

// Get looks up a wrapper without creating one.
func (r *Registry) Get(k Key) (*Wrapper, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wrappers[k]
	return w, ok
}

// All returns every known wrapper, for the aggregate-error sweep at the end
// of a run.
func (r *Registry) All() []*Wrapper {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Wrapper, 0, len(r.wrappers))
	for _, w := range r.wrappers {
		out = append(out, w)
	}
	return out
}

// Remove drops a single identity from the registry, waiting for its fiber
// to reach a terminal state first if one is still in flight — the spec's
// T.reset!, distinct from Reset clearing every identity at once (the
// spec's Taski::Task.reset!). A key that was never created is a no-op.
func (r *Registry) Remove(k Key) {
	r.mu.Lock()
	w, ok := r.wrappers[k]
	r.mu.Unlock()
	if !ok {
		return
	}
	<-w.Done()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.wrappers[k] == w {
		delete(r.wrappers, k)
	}
}

// Reset clears the registry entirely. Callers are responsible for ensuring
// no fiber is still parked on an existing wrapper's Done() channel. An
// Engine keeps one Registry across all of its runs, so completed wrappers are
// reused by later runs until Reset (or Remove) drops them.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wrappers = make(map[Key]*Wrapper)
}

// Count reports how many distinct identities have been created so far.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.wrappers)
}
