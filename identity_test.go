package taski

import "testing"

func TestIdentityHashStableUnderKeyOrder(t *testing.T) {
	a := Identity{Class: "Build", Args: Args{"x": 1, "y": 2}}
	b := Identity{Class: "Build", Args: Args{"y": 2, "x": 1}}
	if a.Hash() != b.Hash() {
		t.Fatalf("expected identical hash regardless of map insertion order")
	}
	if !a.Equal(b) {
		t.Fatalf("expected Equal() true for same class/args in different order")
	}
}

func TestIdentityDistinguishesAbsentFromNilValue(t *testing.T) {
	absent := Identity{Class: "Build", Args: Args{}}
	present := Identity{Class: "Build", Args: Args{"value": nil}}
	if absent.Hash() == present.Hash() {
		t.Fatalf("expected {} and {value: nil} to hash differently")
	}
}

func TestIdentityDifferentClassDifferentHash(t *testing.T) {
	a := Identity{Class: "Build"}
	b := Identity{Class: "Deploy"}
	if a.Hash() == b.Hash() {
		t.Fatalf("expected different classes to hash differently")
	}
}

func TestIdentityStringRendersArgs(t *testing.T) {
	id := Identity{Class: "Build", Args: Args{"target": "linux"}}
	want := "Build(target=linux)"
	if got := id.String(); got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestIdentityStringOmitsEmptyArgs(t *testing.T) {
	id := Identity{Class: "Build"}
	if got := id.String(); got != "Build" {
		t.Fatalf("String() = %q, want %q", got, "Build")
	}
}
