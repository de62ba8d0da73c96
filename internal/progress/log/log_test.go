package log

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"taski/internal/observe"
	"taski/internal/registry"
	"taski/internal/tasklog"
)

func newTestDisplay(buf *bytes.Buffer) *Display {
	l := logrus.New()
	l.Out = buf
	l.Formatter = &logrus.JSONFormatter{}
	return New(tasklog.New(l))
}

func TestOnTaskUpdatedPicksEventByNextState(t *testing.T) {
	var buf bytes.Buffer
	d := newTestDisplay(&buf)

	d.OnTaskUpdated(observe.TaskUpdate{Task: "A", Previous: registry.Pending, Next: registry.Running, Timestamp: time.Now()})
	if !strings.Contains(buf.String(), tasklog.EventTaskStarted) {
		t.Fatalf("expected %s event, got %q", tasklog.EventTaskStarted, buf.String())
	}
}

func TestOnReadyEmitsEvent(t *testing.T) {
	var buf bytes.Buffer
	d := newTestDisplay(&buf)
	d.OnReady()
	if !strings.Contains(buf.String(), "progress.ready") {
		t.Fatalf("expected progress.ready event, got %q", buf.String())
	}
}
