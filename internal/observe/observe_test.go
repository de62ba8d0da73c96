package observe

import (
	"testing"
	"time"

	"taski/internal/exectx"
	"taski/internal/registry"
)

func TestBusDispatchesTypedPayloads(t *testing.T) {
	ec := exectx.New()
	b := New(ec)

	var gotReady bool
	var gotUpdate TaskUpdate
	b.Subscribe(func(kind Kind, payload any) {
		switch kind {
		case Ready:
			gotReady = true
		case TaskUpdated:
			gotUpdate = payload.(TaskUpdate)
		}
	})

	b.Ready()
	ts := time.Now()
	b.TaskUpdated("Build", registry.Running, registry.Completed, ts)

	if !gotReady {
		t.Fatalf("expected Ready notification")
	}
	if gotUpdate.Task != "Build" || gotUpdate.Next != registry.Completed {
		t.Fatalf("unexpected update payload: %+v", gotUpdate)
	}
}

func TestBusGroupAndPhaseEvents(t *testing.T) {
	ec := exectx.New()
	b := New(ec)
	var events []Kind
	b.Subscribe(func(kind Kind, payload any) { events = append(events, kind) })

	b.PhaseStarted(0)
	b.GroupStarted("setup")
	b.GroupCompleted("setup")
	b.PhaseCompleted(0)

	want := []Kind{PhaseStarted, GroupStarted, GroupCompleted, PhaseCompleted}
	if len(events) != len(want) {
		t.Fatalf("got %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("event[%d] = %s, want %s", i, events[i], want[i])
		}
	}
}
