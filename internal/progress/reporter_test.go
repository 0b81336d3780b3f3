package progress

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/AgnesNM/pokefetch/internal/status"
)

func snapshot() []status.ItemStatus {
	return []status.ItemStatus{
		{Item: "a", State: status.StatePending},
		{Item: "b", State: status.StateRunning},
		{Item: "c", State: status.StateRunning},
		{Item: "d", State: status.StateSucceeded},
		{Item: "e", State: status.StateFailed, Reason: status.ReasonNotFound},
	}
}

func TestCount(t *testing.T) {
	c := Count(snapshot())
	want := Counts{Pending: 1, Running: 2, Succeeded: 1, Failed: 1}
	if c != want {
		t.Errorf("Count = %+v, want %+v", c, want)
	}
}

func TestUpdateWritesPlainLines(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(Options{TotalItems: 5, Output: &buf})
	r.Start()
	r.Update(snapshot())

	out := buf.String()
	if !strings.Contains(out, "Fetching 5 items | workers: 5") {
		t.Errorf("missing header: %q", out)
	}
	if !strings.Contains(out, "1 pending | 2 running | 1 succeeded | 1 failed") {
		t.Errorf("missing counts line: %q", out)
	}
	if strings.Contains(out, "\r") {
		t.Errorf("carriage return written to non-TTY output: %q", out)
	}
}

func TestUpdateSkipsUnchangedCounts(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(Options{TotalItems: 5, Output: &buf})
	r.Start()

	r.Update(snapshot())
	lines := strings.Count(buf.String(), "\n")
	r.Update(snapshot())
	if got := strings.Count(buf.String(), "\n"); got != lines {
		t.Errorf("unchanged snapshot re-rendered: %d -> %d lines", lines, got)
	}

	changed := snapshot()
	changed[0].State = status.StateSucceeded
	r.Update(changed)
	if got := strings.Count(buf.String(), "\n"); got != lines+1 {
		t.Errorf("changed snapshot not rendered: %d -> %d lines", lines, got)
	}
}

func TestFinishSummarizesCounts(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(Options{TotalItems: 5, Output: &buf})
	r.Start()
	r.Finish(snapshot())

	if !strings.Contains(buf.String(), "1 succeeded, 1 failed") {
		t.Errorf("missing final counts: %q", buf.String())
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{5 * time.Second, "5s"},
		{90 * time.Second, "1m 30s"},
		{3661 * time.Second, "1h 1m 1s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
