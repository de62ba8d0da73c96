package simple

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"taski/internal/observe"
	"taski/internal/registry"
)

func TestDisplayTracksRunningCount(t *testing.T) {
	var buf bytes.Buffer
	d := New(&buf)

	d.OnTaskUpdated(observe.TaskUpdate{Task: "A", Previous: registry.Pending, Next: registry.Running, Timestamp: time.Now()})
	if d.running != 1 {
		t.Fatalf("running = %d, want 1", d.running)
	}
	d.OnTaskUpdated(observe.TaskUpdate{Task: "A", Previous: registry.Running, Next: registry.Completed, Timestamp: time.Now()})
	if d.running != 0 || d.completed != 1 {
		t.Fatalf("running=%d completed=%d, want 0/1", d.running, d.completed)
	}
	if !strings.Contains(buf.String(), "done=1") {
		t.Fatalf("expected rendered output to contain done=1, got %q", buf.String())
	}
}

func TestStopPrintsNewline(t *testing.T) {
	var buf bytes.Buffer
	d := New(&buf)
	d.Stop()
	if !strings.HasSuffix(buf.String(), "\n") {
		t.Fatalf("expected trailing newline after Stop")
	}
}
