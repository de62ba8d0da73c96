package taski

import (
	"fmt"
	"os"

	"taski/internal/exectx"
)

// Message is a user-facing notification queued during a task's Run. It
// mirrors the spec's Taski::Message: tasks do not write directly to a
// terminal while the progress display is live; Engine.Run prints every
// queued Message to stdout, in queue order, once the display has stopped.
type Message = exectx.Message

// FlushMessages drains and returns every Message queued so far on this run,
// for code that wants to render them itself; messages drained here are not
// printed again when the run ends.
func FlushMessages(rc *RunContext) []Message {
	ec := exectx.FromContext(rc.Context())
	return ec.FlushMessages()
}

// PostMessage is the package-level equivalent of Taski.message(s): library
// code that cannot thread a *RunContext through (helpers called from
// outside any task's Run) can still report a user-facing notification.
// With no active RunContext there is no queue to flush at a display
// boundary, so it always writes straight to real stdout, matching the
// spec's rule that messaging degrades to a direct stdout write whenever no
// context/capture is active.
func PostMessage(text string) {
	fmt.Fprintln(os.Stdout, text)
}
