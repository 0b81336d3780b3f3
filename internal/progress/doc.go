// Package progress renders live batch progress from status snapshots.
//
// The supervisor polls the status store and hands each snapshot to the
// reporter. On a terminal the counts line is rewritten in place; on any
// other writer a plain line is printed whenever the counts change, so
// piped output stays readable.
//
// # Output Format
//
//	[pokefetch] Fetching 9 items | workers: 9
//	[pokefetch] 3 pending | 2 running | 3 succeeded | 1 failed
//	[pokefetch] Done in 12s: 8 succeeded, 1 failed
package progress
