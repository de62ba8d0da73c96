package taski

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"taski/internal/exectx"
	"taski/internal/fiber"
	"taski/internal/observe"
	"taski/internal/progress"
	logprogress "taski/internal/progress/log"
	simpleprogress "taski/internal/progress/simple"
	treeprogress "taski/internal/progress/tree"
	"taski/internal/registry"
	"taski/internal/router"
	"taski/internal/tasklog"
	"taski/internal/taskerr"
)

// RunContext is the only handle a running Task.Run gets on the engine: it
// wraps internal/fiber's concrete RunContext and translates the root
// package's Class/Args/Task vocabulary into the calls fiber understands.
// Keeping the translation here (rather than making RunContext an alias of
// the fiber type) is what lets internal/fiber stay ignorant of the taski
// package and avoid an import cycle.
type RunContext struct {
	inner *fiber.RunContext
	eng   *Engine
}

// Context returns the run's context.Context, carrying cancellation and the
// ExecutionContext installed by internal/exectx.
func (rc *RunContext) Context() context.Context { return rc.inner.Context() }

// WriteOut sends a chunk of attributable stdout to the active output
// router, if the engine has one attached.
func (rc *RunContext) WriteOut(p []byte) (int, error) { return rc.inner.WriteOut(p) }

// QueueMessage enqueues a user-facing notification (the Go analogue of
// Taski::Message); Engine.Run prints the queued messages to stdout, in queue
// order, after the run's progress display has stopped. If no
// capture is active for this run — no ExecutionContext installed on the
// context, which should not happen during a normal Run but can when a task
// is exercised directly in a test — it falls back to writing straight to
// real stdout, per the spec's "no context active" fallback.
func (rc *RunContext) QueueMessage(text string, data map[string]any) {
	ec := exectx.FromContext(rc.Context())
	if ec == nil {
		PostMessage(text)
		return
	}
	ec.QueueMessage(exectx.Message{Text: text, Data: data})
}

// Need resolves a dependency by class and args, running it if it has not
// already been built for this identity, and returns its completed instance.
func (rc *RunContext) Need(class Class, args Args) (Task, error) {
	result, err := rc.inner.Need(rc.eng.spec(class, args))
	if err != nil {
		return nil, err
	}
	task, ok := result.(Task)
	if !ok {
		return nil, fmt.Errorf("taski: dependency %s did not produce a Task", class.Name())
	}
	return task, nil
}

// NeedAttr resolves a dependency the same way as Need, then reads one
// exported attribute off the resulting instance — the Go equivalent of the
// spec's dynamic T.<attr> access.
func (rc *RunContext) NeedAttr(class Class, args Args, attr string) (any, error) {
	task, err := rc.Need(class, args)
	if err != nil {
		return nil, err
	}
	return exportValue(task, attr)
}

// Engine is one independent instance of the scheduling machinery: its own
// registry (so "created at most once per identity" is scoped to the
// Engine), its own executor, output router, and logger. The package-level
// Run/Reset/Clean/SetProgressDisplay functions operate on a lazily built
// default Engine, matching the module-level Taski.run/reset! entry points
// the spec describes; constructing an Engine directly is for embedders that
// want an isolated instance (e.g. running two independent task graphs
// concurrently in the same process, or in tests).
type Engine struct {
	mu           sync.Mutex
	parallelism  int64
	logger       *tasklog.Logger
	progressMode string

	reg *registry.Registry
}

// NewEngine builds an Engine with the given parallelism bound (at least 1)
// and a logrus-backed logger writing to stderr, matching the teacher's
// default of logging operational events to stderr while task output itself
// goes to stdout.
func NewEngine(parallelism int64) *Engine {
	l := logrus.New()
	l.Out = os.Stderr
	l.Formatter = &logrus.TextFormatter{}
	return &Engine{
		parallelism:  parallelism,
		logger:       tasklog.New(l),
		progressMode: progress.ModeAuto,
		reg:          registry.New(),
	}
}

// SetProgressDisplay overrides automatic mode selection (progress.ModeAuto,
// ModeSimple, ModeTree, ModeLog, or ModeNone).
func (e *Engine) SetProgressDisplay(mode string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.progressMode = mode
}

// Reset drops every known task identity, so the next Run starts fresh. It
// neither waits for nor interrupts an in-flight run; callers must ensure no
// run is active. Remove is the per-identity form, and it does wait (see
// DESIGN.md).
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reg.Reset()
}

// Remove drops the single identity class(args) from the registry, waiting
// for any in-flight run of it to finish first. It matches the spec's
// per-identity T.reset!, distinct from Reset which clears every identity
// (Taski::Task.reset!). A class(args) that was never built is a no-op.
func (e *Engine) Remove(class Class, args Args) {
	id := Identity{Class: class.Name(), Args: args}
	e.reg.Remove(registry.Key{Class: id.Class, Hash: id.Hash()})
}

func (e *Engine) spec(class Class, args Args) fiber.Spec {
	id := Identity{Class: class.Name(), Args: args}
	key := fiber.Key{Class: id.Class, Hash: id.Hash()}
	return fiber.Spec{
		Key:     key,
		Display: id.String(),
		New:     func() any { return class.New() },
		Run: func(instance any, inner *fiber.RunContext) error {
			task := instance.(Task)
			rc := &RunContext{inner: inner, eng: e}
			return task.Run(rc)
		},
		Clean: func(instance any) error {
			if c, ok := instance.(Cleaner); ok {
				return c.Clean()
			}
			return nil
		},
	}
}

// Run builds and executes class(args) and everything it transitively
// depends on, blocking until the whole run finishes. On success it returns
// the root task's completed instance; on any task failure it returns a
// *taskerr.AggregateError collecting every task that failed during the run,
// even ones the root task itself tolerated.
func (e *Engine) Run(ctx context.Context, class Class, args Args) (Task, error) {
	e.mu.Lock()
	reg := e.reg
	logger := e.logger
	mode := e.progressMode
	parallelism := e.parallelism
	e.mu.Unlock()

	ec := exectx.New()
	ctx = exectx.WithContext(ctx, ec)
	bus := observe.New(ec)

	out := os.Stdout
	defer func() {
		for _, m := range ec.FlushMessages() {
			fmt.Fprintln(out, m.Text)
		}
	}()
	display := resolveDisplay(mode, out, logger)
	if display != nil {
		progress.Attach(bus, display)
		defer display.Stop()
	}

	rtr, outCh := router.New(256)
	go rtr.Run()
	defer rtr.Close()

	lines := make(chan router.Line, 256)
	rtr.Subscribe(lines)
	go func() {
		for {
			select {
			case line := <-lines:
				if display != nil {
					display.OnOutput(line.Task, line.Data)
				} else {
					out.Write(line.Data)
				}
			case <-rtr.Done():
				return
			}
		}
	}()

	exec := fiber.NewExecutor(parallelism, reg, fiber.WithObserver(func(event string, fields map[string]any) {
		if key, ok := fields["key"].(fiber.Key); ok {
			if taskName, ok := fields["task"].(string); ok {
				rtr.Register(key, taskName)
			}
		}
		if taskName, ok := fields["task"].(string); ok {
			switch event {
			case "task.started":
				bus.TaskUpdated(taskName, registry.Pending, registry.Running, time.Now())
			case "task.completed":
				bus.TaskUpdated(taskName, registry.Running, registry.Completed, time.Now())
			case "task.failed":
				bus.TaskUpdated(taskName, registry.Running, registry.Failed, time.Now())
			}
		}
		ec.Notify(event, fields)
		logger.Event(event, fields)
	}))
	exec.SetOutput(outCh)

	bus.Ready()
	result, agg, err := exec.Root(ctx, e.spec(class, args))
	if err != nil {
		if !agg.Empty() {
			return nil, agg
		}
		return nil, err
	}
	if !agg.Empty() {
		return nil, agg
	}
	task, _ := result.(Task)
	return task, nil
}

// Clean invokes Clean on the instance of class(args), if it implements
// Cleaner, and returns that call's error. An identity that was never built
// gets a fresh zero-valued instance registered first. The task's
// dependencies are not cleaned.
func (e *Engine) Clean(class Class, args Args) error {
	spec := e.spec(class, args)
	w, _ := e.reg.GetOrCreate(spec.Key, spec.Display, spec.New)
	if spec.Clean == nil {
		return nil
	}
	return spec.Clean(w.Instance())
}

func resolveDisplay(mode string, out *os.File, logger *tasklog.Logger) progress.Display {
	if mode == progress.ModeAuto {
		mode = progress.ResolveMode(out)
	}
	switch mode {
	case progress.ModeSimple:
		return simpleprogress.New(out)
	case progress.ModeTree:
		return treeprogress.New(out)
	case progress.ModeLog:
		return logprogress.New(logger)
	case progress.ModeNone:
		return nil
	default:
		return logprogress.New(logger)
	}
}

var defaultEngine = NewEngine(defaultParallelism())

func defaultParallelism() int64 {
	return 8
}

// Run executes class(args) on the package-level default Engine.
func Run(class Class, args Args) (Task, error) {
	return defaultEngine.Run(context.Background(), class, args)
}

// RunWithContext runs class(args) under an explicit context, so callers can
// cancel a run in progress (propagated to every fiber as *taskerr.RunAborted).
func RunWithContext(ctx context.Context, class Class, args Args) (Task, error) {
	return defaultEngine.Run(ctx, class, args)
}

// Reset drops the default Engine's registry, so the next Run rebuilds every
// task from scratch.
func Reset() { defaultEngine.Reset() }

// Remove drops a single class(args) identity from the default Engine,
// matching the spec's per-identity T.reset! (as opposed to Reset, which
// clears everything).
func Remove(class Class, args Args) { defaultEngine.Remove(class, args) }

// Clean tears down class(args) via the default Engine.
func Clean(class Class, args Args) error { return defaultEngine.Clean(class, args) }

// SetProgressDisplay overrides the default Engine's progress layout.
func SetProgressDisplay(mode string) { defaultEngine.SetProgressDisplay(mode) }

// AggregateError and RunAborted are re-exported so callers can type-assert
// on a Run/RunWithContext error without importing an internal package.
type (
	AggregateError          = taskerr.AggregateError
	TaskFailure             = taskerr.TaskFailure
	RunAborted              = taskerr.RunAborted
	TaskBuildError          = taskerr.TaskBuildError
	CircularDependencyError = taskerr.CircularDependencyError
)
