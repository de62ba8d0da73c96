// Package fiber is the scheduling engine: a pool of goroutines playing the
// role of the spec's cooperative fibers, bounded by a weighted semaphore
// instead of a VM-level fiber scheduler. Suspension is realized as
// "release the permit, block on a completion channel, reacquire a permit
// (possibly on a different goroutine) before resuming" — there is no
// stack to save, Go's goroutine stack already is the suspension point.
//
// This package never imports the root taski package. It knows nothing
// about Task, Class, or Args; callers hand it opaque instances and Run/Clean
// closures (a Spec), which keeps the dependency direction one-way: taski ->
// internal/fiber, never back.
package fiber

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/semaphore"

	"taski/internal/registry"
	"taski/internal/taskerr"
)

// Key re-exports the registry's identity key so callers only need to import
// one package for both.
type Key = registry.Key

// Spec describes how to build and run one task identity. The engine treats
// Instance as opaque; New, Run, and Clean are supplied by the root package,
// which knows how to adapt a concrete Task into these closures.
type Spec struct {
	Key     Key
	Display string
	New     func() any
	Run     func(instance any, rc *RunContext) error
	Clean   func(instance any) error
}

// RunContext is what a running task's Run closure receives. It is the
// engine's side of the spec's fiber-local execution context: the only way a
// task observes the engine is through the methods here.
type RunContext struct {
	ctx     context.Context
	exec    *Executor
	self    Key
	chain   []Key // the live call stack of identities, for cycle detection
	out     chan<- OutputChunk
	emitter func(event string, fields map[string]any)

	// holdsPermit is true for every RunContext constructed in schedule's
	// goroutine (i.e. every one actually passed to a task's Run): that
	// goroutine is holding one of the executor's semaphore permits for as
	// long as it keeps running. Need releases it before parking on a
	// dependency and reacquires it before returning, so a blocked fiber
	// never occupies a worker slot. The synthetic top-level RunContext
	// Root builds never itself runs a task body, so it never holds one.
	holdsPermit bool
}

// Context returns the context.Context carrying cancellation and any
// exectx-installed values (observers, message queue) for this run.
func (rc *RunContext) Context() context.Context { return rc.ctx }

// WithContext returns a shallow copy of rc with ctx replaced, letting a task
// pass a derived context (e.g. WithValue) into dependency calls without
// mutating the engine's own bookkeeping.
func (rc *RunContext) WithContext(ctx context.Context) *RunContext {
	cp := *rc
	cp.ctx = ctx
	return &cp
}

// Emit forwards a structured log/observer event tagged with the current
// task's identity; the engine does not interpret it.
func (rc *RunContext) Emit(event string, fields map[string]any) {
	if rc.emitter != nil {
		rc.emitter(event, fields)
	}
}

// WriteOut sends a chunk of attributable output to the router, if one is
// attached to this run.
func (rc *RunContext) WriteOut(p []byte) (int, error) {
	if rc.out == nil {
		return len(p), nil
	}
	cp := make([]byte, len(p))
	copy(cp, p)
	select {
	case rc.out <- OutputChunk{Key: rc.self, Data: cp}:
	case <-rc.ctx.Done():
		return 0, rc.ctx.Err()
	}
	return len(p), nil
}

// OutputChunk is one piece of attributable output, tagged with the
// identity that produced it, sent to whatever the executor's output
// channel is wired to (normally internal/router's dispatcher).
type OutputChunk struct {
	Key  Key
	Data []byte
}

// Need resolves a dependency: it creates the dependency's wrapper on first
// request, schedules its execution if newly created, then suspends the
// calling fiber until the dependency reaches a terminal state. It returns
// the dependency's instance on success.
//
// Suspension releases this fiber's semaphore permit before parking on
// w.Done() and reacquires one (not necessarily the same one — possibly on
// a different worker goroutine entirely once this one wakes) before
// returning, so a fiber blocked on a dependency never occupies a worker
// slot. Without this, a dependency chain deeper than the configured
// parallelism would deadlock: every permit would be held by a parked
// ancestor and the next link in the chain could never acquire one to run.
//
// Cycle detection walks rc.chain, the literal call stack of identities that
// led to this Need call — equivalent to the live "waits-on" graph, since
// dependencies in this engine are always demanded synchronously.
func (rc *RunContext) Need(spec Spec) (any, error) {
	for _, k := range rc.chain {
		if k == spec.Key {
			return nil, rc.exec.circularError(rc.chain, spec.Key)
		}
	}

	w, created := rc.exec.registry.GetOrCreate(spec.Key, spec.Display, spec.New)
	if created {
		rc.exec.schedule(rc.ctx, spec, w, rc.chain)
	}

	if rc.holdsPermit {
		rc.exec.sem.Release(1)
		defer func() { _ = rc.exec.sem.Acquire(context.Background(), 1) }()
	}

	select {
	case <-w.Done():
	case <-rc.ctx.Done():
		return nil, taskerr.NewRunAborted(rc.ctx.Err().Error())
	}

	if err := w.Err(); err != nil {
		return nil, err
	}
	return w.Instance(), nil
}

// Executor owns the concurrency bound and the registry of live wrappers.
type Executor struct {
	sem      *semaphore.Weighted
	registry *registry.Registry
	onEvent  func(event string, fields map[string]any)
	outCh    chan<- OutputChunk
}

// Option configures an Executor at construction.
type Option func(*Executor)

// WithObserver installs a callback invoked for engine-level lifecycle
// events (task started/completed/failed); it is always called from the
// goroutine that owns the corresponding task, never concurrently for the
// same task.
func WithObserver(fn func(event string, fields map[string]any)) Option {
	return func(e *Executor) { e.onEvent = fn }
}

// NewExecutor builds an Executor allowing at most `parallelism` tasks to be
// actively running (not merely scheduled) at once.
func NewExecutor(parallelism int64, reg *registry.Registry, opts ...Option) *Executor {
	if parallelism < 1 {
		parallelism = 1
	}
	e := &Executor{
		sem:      semaphore.NewWeighted(parallelism),
		registry: reg,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Root starts a run: it builds the top-level RunContext and blocks until
// the root task's wrapper completes, then sweeps the registry for every
// other task's terminal failure to build the run's AggregateError.
func (e *Executor) Root(ctx context.Context, spec Spec) (any, *taskerr.AggregateError, error) {
	rc := &RunContext{ctx: ctx, exec: e, self: spec.Key, emitter: e.onEvent}
	result, err := rc.Need(spec)

	agg := &taskerr.AggregateError{}
	for _, w := range e.registry.All() {
		if w.State() == registry.Failed {
			agg.Add(w.Display, w.Err())
		}
	}
	return result, agg, err
}

// schedule launches the goroutine that will actually run one wrapper. It
// acquires a permit (blocking if the pool is saturated), runs the task body,
// marks the wrapper done, and then releases the permit as the goroutine
// returns; a dependent woken by the wrapper's Done() may briefly wait in its
// own reacquire until that release.
func (e *Executor) schedule(ctx context.Context, spec Spec, w *registry.Wrapper, parentChain []Key) {
	go func() {
		if err := e.sem.Acquire(ctx, 1); err != nil {
			_ = w.MarkRunning()
			_ = w.MarkDone(taskerr.NewRunAborted(err.Error()))
			return
		}
		defer e.sem.Release(1)

		if err := w.MarkRunning(); err != nil {
			_ = w.MarkDone(err)
			return
		}
		if e.onEvent != nil {
			e.onEvent("task.started", map[string]any{"task": w.Display, "key": spec.Key})
		}

		chain := append(append([]Key{}, parentChain...), spec.Key)
		childRC := &RunContext{
			ctx:         ctx,
			exec:        e,
			self:        spec.Key,
			chain:       chain,
			out:         e.outCh,
			emitter:     e.onEvent,
			holdsPermit: true,
		}

		runErr := runCatchingPanics(func() error {
			return spec.Run(w.Instance(), childRC)
		})

		if e.onEvent != nil {
			if runErr != nil {
				e.onEvent("task.failed", map[string]any{"task": w.Display, "error": runErr.Error()})
			} else {
				e.onEvent("task.completed", map[string]any{"task": w.Display})
			}
		}

		if runErr != nil {
			runErr = taskerr.NewTaskBuildError(w.Display, runErr)
		}
		_ = w.MarkDone(runErr)
	}()
}

// runCatchingPanics turns a panicking task body into a normal error so one
// misbehaving task can never take down the whole run; this mirrors the
// teacher's trace.SafeRecord recover barrier, applied here to task bodies
// instead of trace sinks.
func runCatchingPanics(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return fn()
}

// circularError builds the spec-mandated message: the static cycle (the
// dependency path that closes back on itself) and the live runtime chain of
// everything currently waiting.
func (e *Executor) circularError(chain []Key, closing Key) *taskerr.CircularDependencyError {
	path := make([]string, 0, len(chain)+1)
	start := 0
	for i, k := range chain {
		if k == closing {
			start = i
			break
		}
	}
	for _, k := range chain[start:] {
		path = append(path, k.Class)
	}
	path = append(path, closing.Class)

	runtime := make([]string, 0, len(chain))
	for _, k := range chain {
		runtime = append(runtime, k.Class)
	}

	return taskerr.NewCircularDependencyError(path, runtime)
}

// SetOutput attaches the channel the router reads attributable output from.
// Called once before Root, never concurrently with a run.
func (e *Executor) SetOutput(ch chan<- OutputChunk) { e.outCh = ch }

// describeChain renders a chain for debug logging.
func describeChain(chain []Key) string {
	parts := make([]string, len(chain))
	for i, k := range chain {
		parts[i] = k.Class
	}
	return strings.Join(parts, " -> ")
}
