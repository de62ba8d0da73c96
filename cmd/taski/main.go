// Command taski is a minimal demo driver exercising the library directly
// with a small hand-declared task graph. It is not a general-purpose CLI —
// per the spec's Non-goals, argument parsing, config-file loading, and
// packaging are out of scope; this binary exists only to give the engine a
// runnable entry point and to double as a manual smoke test.
package main

import (
	"fmt"
	"os"
	"time"

	"taski"
)

type fetchClass struct{}

func (fetchClass) Name() string   { return "Fetch" }
func (fetchClass) New() taski.Task { return &Fetch{} }

// Fetch simulates downloading a source artifact.
type Fetch struct {
	Path string
}

func (f *Fetch) Run(rc *taski.RunContext) error {
	rc.QueueMessage("fetching source", nil)
	time.Sleep(50 * time.Millisecond)
	f.Path = "/tmp/source.tar.gz"
	return nil
}

type buildClass struct{}

func (buildClass) Name() string    { return "Build" }
func (buildClass) New() taski.Task { return &Build{} }

// Build depends on Fetch and produces a binary path.
type Build struct {
	BinaryPath string
}

func (b *Build) StaticDeps() []taski.Identity {
	return []taski.Identity{{Class: "Fetch"}}
}

func (b *Build) Run(rc *taski.RunContext) error {
	fetch, err := rc.Need(fetchClass{}, nil)
	if err != nil {
		return err
	}
	src := fetch.(*Fetch).Path
	rc.QueueMessage("building from "+src, nil)
	time.Sleep(50 * time.Millisecond)
	b.BinaryPath = "/tmp/app"
	return nil
}

type deployClass struct{}

func (deployClass) Name() string    { return "Deploy" }
func (deployClass) New() taski.Task { return &Deploy{} }

// Deploy depends on Build and reports where it shipped the binary.
type Deploy struct {
	DeployedTo string
}

func (d *Deploy) Run(rc *taski.RunContext) error {
	build, err := rc.Need(buildClass{}, nil)
	if err != nil {
		return err
	}
	bin := build.(*Build).BinaryPath
	time.Sleep(20 * time.Millisecond)
	d.DeployedTo = "staging:" + bin
	return nil
}

func main() {
	if mode := os.Getenv("TASKI_PROGRESS_MODE"); mode != "" {
		taski.SetProgressDisplay(mode)
	}

	result, err := taski.Run(deployClass{}, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "run failed:", err)
		os.Exit(1)
	}

	deployed := result.(*Deploy)
	fmt.Println("deployed to:", deployed.DeployedTo)
}
