// Package observe gives typed shape to the notification set §4.6 of the
// spec requires (on_ready, on_phase_started/completed, on_task_updated,
// on_group_started/completed), on top of internal/exectx's untyped
// Notify(event, fields) broadcast.
//
// The recover barrier around each dispatch is adapted from the teacher
// repository's internal/trace/recorder.go (SafeRecord): one observer
// panicking must never abort the run or take other observers down with it.
package observe

import (
	"time"

	"taski/internal/exectx"
	"taski/internal/registry"
)

// Kind enumerates the notification types the public API exposes to
// user-registered observers.
type Kind string

const (
	Ready          Kind = "on_ready"
	PhaseStarted   Kind = "on_phase_started"
	PhaseCompleted Kind = "on_phase_completed"
	TaskUpdated    Kind = "on_task_updated"
	GroupStarted   Kind = "on_group_started"
	GroupCompleted Kind = "on_group_completed"
)

// TaskUpdate is the payload for TaskUpdated: a wrapper's state transition.
type TaskUpdate struct {
	Task      string
	Previous  registry.TaskState
	Next      registry.TaskState
	Timestamp time.Time
}

// Bus wraps an exectx.ExecutionContext and exposes typed emit helpers that
// broadcast through ec.Notify. A Subscribe callback is an Observer on the
// same context, so it also sees every untyped ec.Notify event (such as the
// engine's "task.started"), with a nil payload. internal/fiber and
// internal/registry never import this package.
type Bus struct {
	ec *exectx.ExecutionContext
}

// New attaches a Bus to an ExecutionContext.
func New(ec *exectx.ExecutionContext) *Bus {
	return &Bus{ec: ec}
}

// Subscribe registers fn to receive every notification, regardless of kind.
// Dispatch is recover-guarded per observer by exectx.ExecutionContext.Notify,
// so a panicking fn cannot affect the run or other observers.
func (b *Bus) Subscribe(fn func(kind Kind, payload any)) {
	b.ec.AddObserver(exectx.ObserverFunc(func(event string, fields map[string]any) {
		payload := fields["payload"]
		fn(Kind(event), payload)
	}))
}

func (b *Bus) emit(kind Kind, payload any) {
	b.ec.Notify(string(kind), map[string]any{"payload": payload})
}

// Ready announces that the full static dependency set has resolved and
// execution is about to begin.
func (b *Bus) Ready() { b.emit(Ready, nil) }

// PhaseStarted/PhaseCompleted bracket one numbered phase of a run. The
// engine itself does not emit them.
func (b *Bus) PhaseStarted(phase int)   { b.emit(PhaseStarted, phase) }
func (b *Bus) PhaseCompleted(phase int) { b.emit(PhaseCompleted, phase) }

// TaskUpdated announces a wrapper's state transition.
func (b *Bus) TaskUpdated(task string, prev, next registry.TaskState, ts time.Time) {
	b.emit(TaskUpdated, TaskUpdate{Task: task, Previous: prev, Next: next, Timestamp: ts})
}

// GroupStarted/GroupCompleted bracket a named group of related tasks (the
// spec's grouping construct for progress-display nesting).
func (b *Bus) GroupStarted(name string)   { b.emit(GroupStarted, name) }
func (b *Bus) GroupCompleted(name string) { b.emit(GroupCompleted, name) }
