// Package log is the non-interactive progress layout: one structured log
// line per notification via internal/tasklog, for CI and piped output where
// an animated display would just corrupt the scrollback.
package log

import (
	"taski/internal/observe"
	"taski/internal/progress"
	"taski/internal/tasklog"
)

// Display writes one tasklog event per notification.
type Display struct {
	progress.Base
	lg *tasklog.Logger
}

// New builds a log Display writing through lg.
func New(lg *tasklog.Logger) *Display {
	return &Display{lg: lg}
}

func (d *Display) OnReady() {
	d.lg.Event("progress.ready", nil)
}

func (d *Display) OnPhaseStarted(phase int) {
	d.lg.Event("progress.phase_started", map[string]any{"phase": phase})
}

func (d *Display) OnPhaseCompleted(phase int) {
	d.lg.Event("progress.phase_completed", map[string]any{"phase": phase})
}

func (d *Display) OnTaskUpdated(u observe.TaskUpdate) {
	event := "progress.task_updated"
	switch u.Next {
	case "running":
		event = tasklog.EventTaskStarted
	case "completed":
		event = tasklog.EventTaskCompleted
	case "failed":
		event = tasklog.EventTaskFailed
	}
	d.lg.WithTask(u.Task).Event(event, map[string]any{
		"previous": string(u.Previous),
		"next":     string(u.Next),
	})
}

func (d *Display) OnOutput(task string, data []byte) {
	d.lg.WithTask(task).Event("progress.output", map[string]any{"line": string(data)})
}

func (d *Display) OnGroupStarted(name string) {
	d.lg.Event("progress.group_started", map[string]any{"group": name})
}

func (d *Display) OnGroupCompleted(name string) {
	d.lg.Event("progress.group_completed", map[string]any{"group": name})
}

func (d *Display) Stop() {}
