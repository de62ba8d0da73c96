package tree

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"taski/internal/observe"
	"taski/internal/registry"
)

func TestTreeGroupsTasksUnderActiveGroup(t *testing.T) {
	var buf bytes.Buffer
	d := New(&buf)

	d.OnGroupStarted("setup")
	d.OnTaskUpdated(observe.TaskUpdate{Task: "A", Next: registry.Running, Timestamp: time.Now()})
	d.OnGroupCompleted("setup")
	d.OnTaskUpdated(observe.TaskUpdate{Task: "B", Next: registry.Completed, Timestamp: time.Now()})

	out := buf.String()
	if !strings.Contains(out, "setup") {
		t.Fatalf("expected group name rendered, got %q", out)
	}
	if !strings.Contains(out, "A running") || !strings.Contains(out, "B completed") {
		t.Fatalf("expected task states rendered, got %q", out)
	}
}
