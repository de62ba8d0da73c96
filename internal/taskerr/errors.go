// Package taskerr collects the structured error kinds the engine raises:
// TaskBuildError, CircularDependencyError, AggregateError, and RunAborted.
//
// The Kind/Msg/Unwrap shape is adapted from the teacher repository's
// internal/dag/errors.go (GraphError); stack-trace capture is added via
// github.com/pkg/errors so task.error_detail log events can report the
// first N backtrace frames the logging facade requires.
package taskerr

import (
	"errors"
	"fmt"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
)

var (
	// ErrCircular is the sentinel Kind for CircularDependencyError.
	ErrCircular = errors.New("circular dependency detected")
	// ErrTaskBuild is the sentinel Kind for TaskBuildError.
	ErrTaskBuild = errors.New("task build error")
	// ErrAggregate is the sentinel Kind for AggregateError.
	ErrAggregate = errors.New("one or more tasks failed")
	// ErrRunAborted is returned to waiters when the run is aborted externally.
	ErrRunAborted = errors.New("run aborted")
)

// TaskBuildError wraps any error raised inside a task's Run. It carries the
// failing task's identity string and the underlying cause, and captures a
// stack trace at the point of wrapping.
type TaskBuildError struct {
	TaskIdentity string
	Cause        error
	stack        error // pkg/errors-wrapped, carries StackTrace()
}

func NewTaskBuildError(taskIdentity string, cause error) *TaskBuildError {
	return &TaskBuildError{
		TaskIdentity: taskIdentity,
		Cause:        cause,
		stack:        pkgerrors.WithStack(cause),
	}
}

func (e *TaskBuildError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s: %v", ErrTaskBuild.Error(), e.TaskIdentity, e.Cause)
}

func (e *TaskBuildError) Unwrap() error { return e.Cause }

// StackTrace exposes the first N frames captured at wrap time, used to
// populate the task.error_detail log event.
func (e *TaskBuildError) StackTrace(n int) []string {
	type stackTracer interface {
		StackTrace() pkgerrors.StackTrace
	}
	st, ok := e.stack.(stackTracer)
	if !ok {
		return nil
	}
	frames := st.StackTrace()
	if n > 0 && len(frames) > n {
		frames = frames[:n]
	}
	out := make([]string, 0, len(frames))
	for _, f := range frames {
		out = append(out, fmt.Sprintf("%+v", f))
	}
	return out
}

// CircularDependencyError is raised when resolving a need_dep would close a
// waits-on cycle. Path is the ordered cycle (class names, last entry equals
// first). RuntimeChain is the stack of tasks that were running/waiting when
// the cycle closed, used to build the required human-readable message.
//
// Message format is mandated by spec §7:
//
//	"Circular dependency detected! A → B → A. The runtime chain is: ..."
type CircularDependencyError struct {
	Path         []string
	RuntimeChain []string
}

func NewCircularDependencyError(path, runtimeChain []string) *CircularDependencyError {
	return &CircularDependencyError{Path: path, RuntimeChain: runtimeChain}
}

func (e *CircularDependencyError) Error() string {
	if e == nil {
		return ""
	}
	pathStr := strings.Join(e.Path, " → ")
	chainStr := strings.Join(e.RuntimeChain, " → ")
	return fmt.Sprintf("Circular dependency detected! %s. The runtime chain is: %s", pathStr, chainStr)
}

func (e *CircularDependencyError) Unwrap() error { return ErrCircular }

// TaskFailure bundles one task's terminal failure for aggregation.
type TaskFailure struct {
	Task      string
	Err       error
	Timestamp time.Time
}

func (f TaskFailure) Error() string {
	return fmt.Sprintf("%s: %v", f.Task, f.Err)
}

// AggregateError is the terminal wrapper for one top-level run: it carries
// every TaskFailure collected across parallel branches. It is always raised
// if any task failed, even if the root task itself succeeded by catching a
// dependency's error.
type AggregateError struct {
	Errors []TaskFailure
}

func (e *AggregateError) Error() string {
	if e == nil || len(e.Errors) == 0 {
		return ErrAggregate.Error()
	}
	parts := make([]string, 0, len(e.Errors))
	for _, f := range e.Errors {
		parts = append(parts, f.Error())
	}
	return fmt.Sprintf("%s (%d): %s", ErrAggregate.Error(), len(e.Errors), strings.Join(parts, "; "))
}

func (e *AggregateError) Unwrap() error { return ErrAggregate }

// Add appends a failure to the aggregate, used by the executor as it
// collects failures across the transitively-scheduled task set.
func (e *AggregateError) Add(task string, err error) {
	e.Errors = append(e.Errors, TaskFailure{Task: task, Err: err, Timestamp: time.Now()})
}

// Empty reports whether no failures have been recorded.
func (e *AggregateError) Empty() bool { return e == nil || len(e.Errors) == 0 }

// RunAborted is the internal failure value for a canceled run: a fiber
// parked in Need returns it as soon as the run's context is canceled, and a
// task still waiting for a worker slot is failed with it. The latch of a task
// whose Run is already executing is not fired with it; that latch fires
// when the Run returns.
type RunAborted struct {
	Reason string
}

func NewRunAborted(reason string) *RunAborted { return &RunAborted{Reason: reason} }

func (e *RunAborted) Error() string {
	if e.Reason == "" {
		return ErrRunAborted.Error()
	}
	return fmt.Sprintf("%s: %s", ErrRunAborted.Error(), e.Reason)
}

func (e *RunAborted) Unwrap() error { return ErrRunAborted }

// RouterError wraps an I/O failure from the output router that is not a
// benign "pipe already closed" race.
type RouterError struct {
	Cause error
}

func (e *RouterError) Error() string { return fmt.Sprintf("output router: %v", e.Cause) }
func (e *RouterError) Unwrap() error { return e.Cause }
