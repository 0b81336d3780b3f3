package status

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Log is the chronological attempt log shared by all workers.
//
// Append formats one line and hands it to the underlying writer in a
// single Write call while holding the lock, so concurrent appends cannot
// corrupt each other's lines.
type Log struct {
	mu sync.Mutex
	w  io.Writer
	c  io.Closer // nil when the writer is not owned by the Log
}

// OpenLog opens (creating if needed) the append-only log file at path.
func OpenLog(path string) (*Log, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open attempt log: %w", err)
	}
	return &Log{w: f, c: f}, nil
}

// NewLog returns a Log writing to w. The caller retains ownership of w.
func NewLog(w io.Writer) *Log {
	return &Log{w: w}
}

// Append records one attempt. outcome is the classified result of the
// attempt ("succeeded", "cached", or a failure Reason).
func (l *Log) Append(item string, attempt int, outcome string) error {
	line := fmt.Sprintf("%s\t%s\t%d\t%s\n",
		time.Now().UTC().Format(time.RFC3339Nano), item, attempt, outcome)

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := io.WriteString(l.w, line); err != nil {
		return fmt.Errorf("append attempt log: %w", err)
	}
	return nil
}

// Close closes the underlying file, if the Log owns one.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.c == nil {
		return nil
	}
	err := l.c.Close()
	l.c = nil
	return err
}
