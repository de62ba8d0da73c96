package taski

// Task is a declarative unit of work. A concrete Task is normally a pointer
// to a struct whose exported (capitalized) fields are its exported
// attributes — readable by dependents once the task reaches the Completed
// state. This mirrors the teacher's own declarative-struct style
// (internal/core.Task) but replaces "fields describing a shell command" with
// "fields the engine assigns from Run and other tasks later read."
type Task interface {
	// Run executes the task body. rc is the only way a task may observe or
	// influence the engine: requesting dependencies, writing attributable
	// stdout, or queuing a user-facing message.
	Run(rc *RunContext) error
}

// Cleaner is implemented by tasks that need teardown behavior. Clean (and
// Engine.Clean) dispatches to it if present; it is always safe to call, even on a task
// that was never run (per Design Note 9.b, the instance's fields are simply
// in their zero state).
type Cleaner interface {
	Clean() error
}

// StaticDepender lets a task class declare dependency edges ahead of
// execution, standing in for the external static-dependency analyzer the
// spec treats as a hint. The scheduler does not read it: dependencies are
// created and scheduled only when a task's Run calls Need.
type StaticDepender interface {
	StaticDeps() []Identity
}

// Class identifies a task type the engine can instantiate and schedule.
// A Class is typically a zero-size struct; its New method returns a fresh
// instance every time, exactly once per identity per the registry's
// "created wrapper at most once" invariant.
type Class interface {
	// Name is the stable class name used for identity, logs, and error
	// messages. Two Class values with the same Name are treated as the same
	// task class.
	Name() string

	// New constructs a fresh, zero-valued Task instance. The engine calls
	// this exactly once per distinct (class, args) identity.
	New() Task
}
