package fiber

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"taski/internal/registry"
)

func leafSpec(name string) Spec {
	return Spec{
		Key:     Key{Class: name, Hash: "h"},
		Display: name + "()",
		New:     func() any { return &name },
		Run:     func(instance any, rc *RunContext) error { return nil },
	}
}

func TestRootRunsSingleTask(t *testing.T) {
	reg := registry.New()
	exec := NewExecutor(2, reg)
	var ran int32
	spec := Spec{
		Key:     Key{Class: "A", Hash: "h"},
		Display: "A()",
		New:     func() any { return "instance" },
		Run: func(instance any, rc *RunContext) error {
			atomic.AddInt32(&ran, 1)
			return nil
		},
	}
	result, agg, err := exec.Root(context.Background(), spec)
	if err != nil {
		t.Fatalf("Root() error = %v", err)
	}
	if result != "instance" {
		t.Fatalf("result = %v, want instance", result)
	}
	if !agg.Empty() {
		t.Fatalf("expected empty aggregate, got %v", agg)
	}
	if atomic.LoadInt32(&ran) != 1 {
		t.Fatalf("task ran %d times, want 1", ran)
	}
}

func TestNeedResolvesDependencyOnce(t *testing.T) {
	reg := registry.New()
	exec := NewExecutor(2, reg)
	var depRuns int32

	dep := Spec{
		Key:     Key{Class: "Dep", Hash: "h"},
		Display: "Dep()",
		New:     func() any { return "dep-instance" },
		Run: func(instance any, rc *RunContext) error {
			atomic.AddInt32(&depRuns, 1)
			return nil
		},
	}
	root := Spec{
		Key:     Key{Class: "Root", Hash: "h"},
		Display: "Root()",
		New:     func() any { return "root-instance" },
		Run: func(instance any, rc *RunContext) error {
			if _, err := rc.Need(dep); err != nil {
				return err
			}
			_, err := rc.Need(dep)
			return err
		},
	}
	_, agg, err := exec.Root(context.Background(), root)
	if err != nil {
		t.Fatalf("Root() error = %v", err)
	}
	if !agg.Empty() {
		t.Fatalf("expected empty aggregate, got %v", agg)
	}
	if atomic.LoadInt32(&depRuns) != 1 {
		t.Fatalf("dependency ran %d times, want 1", depRuns)
	}
}

func TestNeedPropagatesDependencyFailure(t *testing.T) {
	reg := registry.New()
	exec := NewExecutor(2, reg)
	wantErr := errors.New("dependency exploded")

	dep := Spec{
		Key:     Key{Class: "Dep", Hash: "h"},
		Display: "Dep()",
		New:     func() any { return "dep" },
		Run:     func(instance any, rc *RunContext) error { return wantErr },
	}
	root := Spec{
		Key:     Key{Class: "Root", Hash: "h"},
		Display: "Root()",
		New:     func() any { return "root" },
		Run: func(instance any, rc *RunContext) error {
			_, err := rc.Need(dep)
			return err
		},
	}
	_, agg, err := exec.Root(context.Background(), root)
	if err == nil {
		t.Fatalf("expected Root() to fail")
	}
	if agg.Empty() {
		t.Fatalf("expected aggregate to record failures")
	}
}

func TestNeedDetectsCircularDependency(t *testing.T) {
	reg := registry.New()
	exec := NewExecutor(2, reg)

	var a, b Spec
	a = Spec{
		Key:     Key{Class: "A", Hash: "h"},
		Display: "A()",
		New:     func() any { return "a" },
		Run: func(instance any, rc *RunContext) error {
			_, err := rc.Need(b)
			return err
		},
	}
	b = Spec{
		Key:     Key{Class: "B", Hash: "h"},
		Display: "B()",
		New:     func() any { return "b" },
		Run: func(instance any, rc *RunContext) error {
			_, err := rc.Need(a)
			return err
		},
	}
	_, _, err := exec.Root(context.Background(), a)
	if err == nil {
		t.Fatalf("expected circular dependency error")
	}
	msg := err.Error()
	for _, want := range []string{"Circular dependency detected!", "→", "The runtime chain is:"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error message %q missing %q", msg, want)
		}
	}
}

func TestNeedReleasesPermitWhileParked(t *testing.T) {
	reg := registry.New()
	exec := NewExecutor(2, reg)

	chain := []Spec{}
	const depth = 5
	for i := 0; i < depth; i++ {
		i := i
		name := "Link"
		spec := Spec{
			Key:     Key{Class: name, Hash: string(rune('A' + i))},
			Display: name,
			New:     func() any { return i },
			Run: func(instance any, rc *RunContext) error {
				if i+1 < depth {
					_, err := rc.Need(chain[i+1])
					return err
				}
				return nil
			},
		}
		chain = append(chain, spec)
	}

	done := make(chan struct{})
	go func() {
		_, agg, err := exec.Root(context.Background(), chain[0])
		if err != nil {
			t.Errorf("Root() error = %v", err)
		}
		if agg != nil && !agg.Empty() {
			t.Errorf("unexpected aggregate failures: %v", agg)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Root() deadlocked on a dependency chain deeper than parallelism")
	}
}

func TestRootAbortsOnContextCancel(t *testing.T) {
	reg := registry.New()
	exec := NewExecutor(1, reg)
	ctx, cancel := context.WithCancel(context.Background())

	blocked := Spec{
		Key:     Key{Class: "Blocked", Hash: "h"},
		Display: "Blocked()",
		New:     func() any { return "blocked" },
		Run: func(instance any, rc *RunContext) error {
			<-rc.Context().Done()
			return rc.Context().Err()
		},
	}
	done := make(chan struct{})
	go func() {
		exec.Root(ctx, blocked)
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Root() did not return after context cancellation")
	}
}
