// Package status tracks per-item worker progress and the shared attempt log.
//
// The Store holds one slot per work item. Each slot has exactly one writer
// (the worker that owns the item); the supervisor only ever reads, so slot
// updates need no coordination beyond the map lock. A slot moves through
// pending -> running -> succeeded|failed and is frozen once terminal.
//
// The Log is an append-only file shared by all workers. Every attempt adds
// one line:
//
//	2025-01-15T10:30:00.123456789Z	pikachu	2	rate_limited
//
// Each line is written with a single Write call under a mutex, so lines
// from concurrent workers never interleave.
package status
