// Package worker runs the per-item retry state machine.
//
// Each worker owns exactly one item end-to-end: it validates the
// identifier, makes up to MaxRetries fetch attempts, classifies every
// outcome, backs off between attempts (longer when rate limited), and
// commits exactly one terminal status. On success the payload is
// published atomically through the artifact store; nothing is ever
// written to the final location on failure.
//
// The worker is the only writer of its item's status slot. A worker that
// observes cancellation abandons its current attempt, skips the remaining
// retries, and commits a terminal aborted failure.
package worker
