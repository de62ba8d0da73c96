// Package tasklog is the structured logging facade, a thin nil-tolerant
// wrapper around *logrus.Entry grounded on firestige-Otus's pkg/log/logrus.go
// and internal/log/logger_adapter.go: every method is safe to call on a nil
// *Logger so callers never need a "did the caller configure logging" check.
//
// Every call stamps a thread_id, standing in for the spec's fiber-identity
// tag on each log line (§4.7); it is one uuid per Logger built by New, kept
// by every Logger derived from it, so all events of one Engine (which holds
// a single Logger) carry the same thread_id.
package tasklog

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Required event names, per §4.7's minimum event set.
const (
	EventExecutionStarted   = "execution.started"
	EventExecutionCompleted = "execution.completed"
	EventTaskStarted        = "task.started"
	EventTaskCompleted      = "task.completed"
	EventTaskFailed         = "task.failed"
	EventTaskCleanStarted   = "task.clean_started"
	EventTaskCleanCompleted = "task.clean_completed"
	EventTaskErrorDetail    = "task.error_detail"
	EventDependencyCircular = "dependency.circular"
)

// Logger wraps a *logrus.Entry. A nil *Logger is valid: every method no-ops.
type Logger struct {
	entry    *logrus.Entry
	threadID string
}

// New builds a Logger writing through l, tagged with a fresh thread_id.
func New(l *logrus.Logger) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{entry: logrus.NewEntry(l), threadID: uuid.NewString()}
}

// NewNop returns a Logger that discards everything, used when the caller
// configures no destination but still wants to call every method safely.
func NewNop() *Logger {
	l := logrus.New()
	l.Out = nopWriter{}
	return New(l)
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

// WithField returns a derived Logger carrying one extra structured field,
// mirroring logrus.Entry.WithField's immutable-chaining style.
func (lg *Logger) WithField(key string, value any) *Logger {
	if lg == nil {
		return nil
	}
	return &Logger{entry: lg.entry.WithField(key, value), threadID: lg.threadID}
}

// WithFields is the multi-field form of WithField.
func (lg *Logger) WithFields(fields map[string]any) *Logger {
	if lg == nil {
		return nil
	}
	return &Logger{entry: lg.entry.WithFields(logrus.Fields(fields)), threadID: lg.threadID}
}

// WithTask scopes subsequent events to one task's identity.
func (lg *Logger) WithTask(task string) *Logger {
	return lg.WithField("task", task)
}

// Event emits one structured log line for the named event, with thread_id
// and any already-chained fields attached.
func (lg *Logger) Event(name string, data map[string]any) {
	if lg == nil {
		return
	}
	fields := logrus.Fields{"event": name, "thread_id": lg.threadID}
	for k, v := range data {
		fields[k] = v
	}
	lg.entry.WithFields(fields).Info(name)
}

// ErrorDetail emits task.error_detail with the error and, if it carries one,
// a stack trace.
func (lg *Logger) ErrorDetail(task string, err error, stack []string) {
	if lg == nil {
		return
	}
	data := map[string]any{"error": err.Error()}
	if len(stack) > 0 {
		data["stack"] = stack
	}
	lg.WithTask(task).Event(EventTaskErrorDetail, data)
}
