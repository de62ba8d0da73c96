// Package tree renders a multi-line, indented view of task groups and their
// members, redrawn in place — the richer layout for interactive terminals
// that want to see the whole live tree rather than one summary line.
package tree

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/fatih/color"

	"taski/internal/observe"
	"taski/internal/progress"
	"taski/internal/registry"
)

type node struct {
	state registry.TaskState
	group string
}

// Display renders a grouped tree of task states.
type Display struct {
	progress.Base
	out io.Writer

	mu       sync.Mutex
	nodes    map[string]*node
	order    []string
	groups   []string
	lastRows int

	colorFor map[registry.TaskState]*color.Color
}

// New builds a tree Display writing to out.
func New(out io.Writer) *Display {
	return &Display{
		out:   out,
		nodes: make(map[string]*node),
		colorFor: map[registry.TaskState]*color.Color{
			registry.Pending:   color.New(color.FgWhite),
			registry.Ready:     color.New(color.FgWhite),
			registry.Running:   color.New(color.FgYellow),
			registry.Completed: color.New(color.FgGreen),
			registry.Failed:    color.New(color.FgRed),
		},
	}
}

func (d *Display) OnGroupStarted(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.groups = append(d.groups, name)
	d.redraw()
}

func (d *Display) OnGroupCompleted(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, g := range d.groups {
		if g == name {
			d.groups = append(d.groups[:i], d.groups[i+1:]...)
			break
		}
	}
	d.redraw()
}

func (d *Display) OnTaskUpdated(u observe.TaskUpdate) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, ok := d.nodes[u.Task]
	if !ok {
		n = &node{}
		d.nodes[u.Task] = n
		d.order = append(d.order, u.Task)
	}
	n.state = u.Next
	if len(d.groups) > 0 {
		n.group = d.groups[len(d.groups)-1]
	}
	d.redraw()
}

// OnOutput prints a captured output line above the tree and forces a
// redraw, since the line shifts every row the tree's cursor math assumes.
func (d *Display) OnOutput(task string, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lastRows > 0 {
		fmt.Fprintf(d.out, "\x1b[%dA", d.lastRows)
		d.lastRows = 0
	}
	fmt.Fprintf(d.out, "\x1b[2K[%s] %s", task, data)
	d.redraw()
}

func (d *Display) redraw() {
	if d.lastRows > 0 {
		fmt.Fprintf(d.out, "\x1b[%dA", d.lastRows)
	}
	byGroup := make(map[string][]string)
	ungrouped := []string{}
	for _, name := range d.order {
		n := d.nodes[name]
		if n.group == "" {
			ungrouped = append(ungrouped, name)
		} else {
			byGroup[n.group] = append(byGroup[n.group], name)
		}
	}

	rows := 0
	groupNames := make([]string, 0, len(byGroup))
	for g := range byGroup {
		groupNames = append(groupNames, g)
	}
	sort.Strings(groupNames)

	for _, g := range groupNames {
		fmt.Fprintf(d.out, "\x1b[2K%s\n", g)
		rows++
		for _, name := range byGroup[g] {
			n := d.nodes[name]
			c := d.colorFor[n.state]
			fmt.Fprintf(d.out, "\x1b[2K  %s\n", c.Sprintf("%s %s", name, n.state))
			rows++
		}
	}
	for _, name := range ungrouped {
		n := d.nodes[name]
		c := d.colorFor[n.state]
		fmt.Fprintf(d.out, "\x1b[2K%s\n", c.Sprintf("%s %s", name, n.state))
		rows++
	}
	d.lastRows = rows
}

func (d *Display) Stop() {}
