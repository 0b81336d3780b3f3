package progress

import (
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/AgnesNM/pokefetch/internal/status"
)

// Options configures the progress reporter.
type Options struct {
	// TotalItems is the number of items in the batch.
	TotalItems int

	// Workers is the parallelism ceiling for display; 0 means one
	// worker per item.
	Workers int

	// Output is where to write progress output.
	// Default: os.Stderr
	Output io.Writer
}

// Counts are the per-state totals of one snapshot.
type Counts struct {
	Pending   int
	Running   int
	Succeeded int
	Failed    int
}

// Count tallies a snapshot into per-state totals.
func Count(snapshot []status.ItemStatus) Counts {
	var c Counts
	for _, st := range snapshot {
		switch st.State {
		case status.StateRunning:
			c.Running++
		case status.StateSucceeded:
			c.Succeeded++
		case status.StateFailed:
			c.Failed++
		default:
			c.Pending++
		}
	}
	return c
}

// Reporter renders snapshots handed to it by the supervisor's poll loop.
type Reporter struct {
	opts      Options
	tty       bool
	startTime time.Time
	last      Counts
	rendered  bool
}

// NewReporter creates a reporter. TTY detection happens once, here.
func NewReporter(opts Options) *Reporter {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	tty := false
	if f, ok := opts.Output.(*os.File); ok {
		tty = term.IsTerminal(int(f.Fd()))
	}
	return &Reporter{opts: opts, tty: tty}
}

// Start prints the batch header.
func (r *Reporter) Start() {
	r.startTime = time.Now()
	workers := r.opts.Workers
	if workers <= 0 {
		workers = r.opts.TotalItems
	}
	fmt.Fprintf(r.opts.Output, "[pokefetch] Fetching %d items | workers: %d\n",
		r.opts.TotalItems, workers)
}

// Update renders the current snapshot.
func (r *Reporter) Update(snapshot []status.ItemStatus) {
	c := Count(snapshot)
	if !r.tty && r.rendered && c == r.last {
		return
	}
	r.last = c
	r.rendered = true

	line := fmt.Sprintf("[pokefetch] %d pending | %d running | %d succeeded | %d failed",
		c.Pending, c.Running, c.Succeeded, c.Failed)

	if r.tty {
		fmt.Fprintf(r.opts.Output, "\r%s    ", r.fit(line))
	} else {
		fmt.Fprintln(r.opts.Output, line)
	}
}

// Finish prints the closing line.
func (r *Reporter) Finish(snapshot []status.ItemStatus) {
	c := Count(snapshot)
	if r.tty {
		fmt.Fprintln(r.opts.Output)
	}
	fmt.Fprintf(r.opts.Output, "[pokefetch] Done in %s: %d succeeded, %d failed\n",
		formatDuration(time.Since(r.startTime)), c.Succeeded, c.Failed)
}

// fit truncates line to the terminal width so the \r rewrite never wraps.
func (r *Reporter) fit(line string) string {
	f, ok := r.opts.Output.(*os.File)
	if !ok {
		return line
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 4 || len(line) <= width-4 {
		return line
	}
	return line[:width-4]
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}
