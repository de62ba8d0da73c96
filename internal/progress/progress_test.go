package progress

import (
	"testing"
	"time"

	"taski/internal/exectx"
	"taski/internal/observe"
	"taski/internal/registry"
)

type recordingDisplay struct {
	noopDisplay
	readyCalled bool
	lastGroup   string
	lastUpdate  observe.TaskUpdate
}

func (d *recordingDisplay) OnReady()                     { d.readyCalled = true }
func (d *recordingDisplay) OnGroupStarted(name string)    { d.lastGroup = name }
func (d *recordingDisplay) OnTaskUpdated(u observe.TaskUpdate) { d.lastUpdate = u }

func TestAttachDispatchesToDisplay(t *testing.T) {
	ec := exectx.New()
	bus := observe.New(ec)
	d := &recordingDisplay{}
	Attach(bus, d)

	bus.Ready()
	bus.GroupStarted("setup")
	bus.TaskUpdated("Build", registry.Pending, registry.Running, time.Now())

	if !d.readyCalled {
		t.Fatalf("expected OnReady to be called")
	}
	if d.lastGroup != "setup" {
		t.Fatalf("lastGroup = %q, want setup", d.lastGroup)
	}
	if d.lastUpdate.Task != "Build" {
		t.Fatalf("lastUpdate.Task = %q, want Build", d.lastUpdate.Task)
	}
}
