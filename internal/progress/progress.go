// Package progress defines the Display contract the three concrete layouts
// (simple, tree, log) implement, plus the environment-driven selection logic
// (TTY detection, NO_COLOR, TASKI_FORCE_PROGRESS) grounded on the
// mattn/go-isatty + fatih/color pairing seen across the example pack's
// CLI tooling (e.g. the Turborepo cli-internal run command and
// smileynet-capsule's cmd/capsule, both gating colorized/animated output on
// isatty.IsTerminal before falling back to a plain writer).
package progress

import (
	"os"

	"github.com/mattn/go-isatty"

	"taski/internal/observe"
	"taski/internal/registry"
)

// Display receives every observer notification and renders it somehow —
// a single status line, an indented tree, or one JSON log line per event.
type Display interface {
	OnReady()
	OnPhaseStarted(phase int)
	OnPhaseCompleted(phase int)
	OnTaskUpdated(update observe.TaskUpdate)
	OnGroupStarted(name string)
	OnGroupCompleted(name string)
	// OnOutput receives one chunk of captured task stdout, labeled with the
	// task's display name, as the router forwards it.
	OnOutput(task string, data []byte)
	Stop()
}

// Attach subscribes d to every notification the bus emits, dispatching to
// the matching Display method.
func Attach(bus *observe.Bus, d Display) {
	bus.Subscribe(func(kind observe.Kind, payload any) {
		switch kind {
		case observe.Ready:
			d.OnReady()
		case observe.PhaseStarted:
			d.OnPhaseStarted(payload.(int))
		case observe.PhaseCompleted:
			d.OnPhaseCompleted(payload.(int))
		case observe.TaskUpdated:
			d.OnTaskUpdated(payload.(observe.TaskUpdate))
		case observe.GroupStarted:
			d.OnGroupStarted(payload.(string))
		case observe.GroupCompleted:
			d.OnGroupCompleted(payload.(string))
		}
	})
}

// Mode names accepted by TASKI_PROGRESS_MODE / SetProgressDisplay.
const (
	ModeAuto   = "auto"
	ModeSimple = "simple"
	ModeTree   = "tree"
	ModeLog    = "log"
	ModeNone   = "none"
)

// ColorEnabled applies the pack's usual precedence: NO_COLOR always wins,
// TASKI_FORCE_PROGRESS forces color/animation even when not a TTY, otherwise
// fall back to isatty detection on the given file.
func ColorEnabled(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("TASKI_FORCE_PROGRESS") != "" {
		return true
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// ResolveMode picks a concrete mode from the TASKI_PROGRESS_MODE env var,
// falling back to "simple" on an interactive terminal (or when
// TASKI_FORCE_PROGRESS is set) or "log" otherwise. NO_COLOR does not affect
// the choice.
func ResolveMode(out *os.File) string {
	if m := os.Getenv("TASKI_PROGRESS_MODE"); m != "" {
		return m
	}
	if os.Getenv("TASKI_FORCE_PROGRESS") != "" || isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd()) {
		return ModeSimple
	}
	return ModeLog
}

// noopDisplay implements Display by discarding every event; used by
// NoDisplay and as an embeddable base for layouts that only care about a
// subset of events.
type noopDisplay struct{}

func (noopDisplay) OnReady()                        {}
func (noopDisplay) OnPhaseStarted(int)               {}
func (noopDisplay) OnPhaseCompleted(int)             {}
func (noopDisplay) OnTaskUpdated(observe.TaskUpdate) {}
func (noopDisplay) OnGroupStarted(string)            {}
func (noopDisplay) OnGroupCompleted(string)          {}
func (noopDisplay) OnOutput(string, []byte)          {}
func (noopDisplay) Stop()                            {}

// NoDisplay returns a Display that discards every event. (Engine.Run attaches
// no display at all for ModeNone.)
func NoDisplay() Display { return noopDisplay{} }

// Base embeds into concrete layouts so they only need to override the
// methods they care about.
type Base struct{ noopDisplay }

// stateLabel renders a registry.TaskState for display.
func stateLabel(s registry.TaskState) string { return string(s) }
