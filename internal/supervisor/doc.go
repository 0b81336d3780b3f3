// Package supervisor orchestrates a batch of fetch workers.
//
// Run dispatches one worker per item (optionally capped by MaxParallel),
// polls the status store to drive live progress, and blocks until every
// worker has handed back its terminal status through the results channel.
// A worker's slot going terminal is not enough: the aggregate report is
// built only from statuses returned by exited workers, never from
// counters updated along the way.
//
// Cancellation at any point triggers a graceful stop. Workers that do not
// exit within the grace period are abandoned and reported as aborted.
// Cleanup deletes every staged artifact and runs at most once no matter
// how the run ends.
package supervisor
