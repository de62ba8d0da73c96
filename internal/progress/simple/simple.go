// Package simple is a single-line status display: one line updated in place
// showing how many tasks are running/completed/failed, colorized with
// github.com/fatih/color. It keeps no start/stop nesting count: every Stop
// call ends the line with a newline.
package simple

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"taski/internal/observe"
	"taski/internal/progress"
	"taski/internal/registry"
)

// Display renders one updated-in-place status line.
type Display struct {
	progress.Base
	out io.Writer

	mu        sync.Mutex
	running   int
	completed int
	failed    int
	lastLen   int

	okColor   *color.Color
	failColor *color.Color
	runColor  *color.Color
}

// New builds a simple Display writing to out. Whether color is emitted is
// left to the fatih/color package's own color.NoColor global, which that
// package initializes from NO_COLOR and whether stdout is a terminal; New
// does not change it.
func New(out io.Writer) *Display {
	return &Display{
		out:       out,
		okColor:   color.New(color.FgGreen),
		failColor: color.New(color.FgRed),
		runColor:  color.New(color.FgYellow),
	}
}

func (d *Display) OnTaskUpdated(u observe.TaskUpdate) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch u.Previous {
	case registry.Running:
		d.running--
	}
	switch u.Next {
	case registry.Running:
		d.running++
	case registry.Completed:
		d.completed++
	case registry.Failed:
		d.failed++
	}
	d.render()
}

// OnOutput prints a captured output line above the status line, labeled
// with the task that produced it, then redraws the status line below it.
func (d *Display) OnOutput(task string, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.out, "\r%s\n", spaces(d.lastLen))
	fmt.Fprintf(d.out, "[%s] %s", task, data)
	d.render()
}

func (d *Display) render() {
	line := fmt.Sprintf("%s %s %s",
		d.runColor.Sprintf("running=%d", d.running),
		d.okColor.Sprintf("done=%d", d.completed),
		d.failColor.Sprintf("failed=%d", d.failed),
	)
	pad := ""
	if d.lastLen > len(line) {
		pad = spaces(d.lastLen - len(line))
	}
	fmt.Fprintf(d.out, "\r%s%s", line, pad)
	d.lastLen = len(line)
}

func (d *Display) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintln(d.out)
}

func spaces(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}

