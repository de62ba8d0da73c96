package router

import (
	"testing"
	"time"

	"taski/internal/fiber"
)

func TestRouterLabelsAndFansOut(t *testing.T) {
	r, ch := New(4)
	key := fiber.Key{Class: "Build", Hash: "h"}
	r.Register(key, "Build()")

	sub := make(chan Line, 4)
	r.Subscribe(sub)
	go r.Run()

	ch <- fiber.OutputChunk{Key: key, Data: []byte("hello\n")}
	r.Close()

	select {
	case line := <-sub:
		if line.Task != "Build()" || string(line.Data) != "hello\n" {
			t.Fatalf("unexpected line: %+v", line)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for routed line")
	}

	select {
	case <-r.Done():
	case <-time.After(time.Second):
		t.Fatal("router did not finish after Close")
	}
}

func TestRouterFallsBackToClassWhenUnregistered(t *testing.T) {
	r, ch := New(2)
	key := fiber.Key{Class: "Unregistered", Hash: "h"}
	sub := make(chan Line, 2)
	r.Subscribe(sub)
	go r.Run()

	ch <- fiber.OutputChunk{Key: key, Data: []byte("x")}
	r.Close()

	line := <-sub
	if line.Task != "Unregistered" {
		t.Fatalf("Task = %q, want fallback class name", line.Task)
	}
}
