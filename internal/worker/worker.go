package worker

import (
	"context"
	"net/http"
	"time"

	"github.com/AgnesNM/pokefetch/internal/artifact"
	"github.com/AgnesNM/pokefetch/internal/fetchclient"
	"github.com/AgnesNM/pokefetch/internal/status"
)

// Config tunes the retry state machine.
type Config struct {
	// MaxRetries is the maximum number of fetch attempts per item.
	MaxRetries int

	// RetryDelay is the wait between attempts after a generic
	// retryable failure.
	RetryDelay time.Duration

	// RateLimitMultiplier scales RetryDelay after an HTTP 429.
	// Must be greater than 1 so rate-limit backoff is strictly longer.
	RateLimitMultiplier float64

	// Force refetches even when the final artifact already exists.
	Force bool
}

// applyDefaults fills zero values with the documented defaults.
func (c Config) applyDefaults() Config {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 2 * time.Second
	}
	if c.RateLimitMultiplier <= 1 {
		c.RateLimitMultiplier = 3
	}
	return c
}

// Deps are the collaborators a worker needs.
type Deps struct {
	Client    fetchclient.Fetcher
	Artifacts *artifact.Store
	Store     *status.Store
	Log       *status.Log

	// WellFormed overrides the payload check. Nil means WellFormed.
	WellFormed func([]byte) bool
}

// outcome is the classification of one attempt.
type outcome struct {
	success bool
	reason  status.Reason
}

// Run processes one item to a terminal status and returns it. The
// returned value is identical to the item's final status slot.
func Run(ctx context.Context, item string, deps Deps, cfg Config) status.ItemStatus {
	cfg = cfg.applyDefaults()
	wellFormed := deps.WellFormed
	if wellFormed == nil {
		wellFormed = WellFormed
	}

	commit := func(st status.ItemStatus) status.ItemStatus {
		// Single-writer invariant: this worker is the only writer of
		// its slot, so a failed Set would indicate a bug upstream.
		_ = deps.Store.Set(st)
		return st
	}

	if err := ValidateItem(item); err != nil {
		deps.Log.Append(item, 0, string(status.ReasonInvalidInput))
		return commit(status.ItemStatus{
			Item:   item,
			State:  status.StateFailed,
			Reason: status.ReasonInvalidInput,
		})
	}

	commit(status.ItemStatus{Item: item, State: status.StateRunning})

	if !cfg.Force {
		if ok, err := deps.Artifacts.Exists(ctx, item); err == nil && ok {
			deps.Log.Append(item, 0, "cached")
			return commit(status.ItemStatus{
				Item:  item,
				State: status.StateSucceeded,
			})
		}
	}

	var lastReason status.Reason
	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return commit(aborted(item, attempt-1, deps))
		}

		out := runAttempt(ctx, item, attempt, deps, wellFormed)

		if out.reason == status.ReasonAborted {
			return commit(aborted(item, attempt, deps))
		}

		if out.success {
			deps.Log.Append(item, attempt, "succeeded")
			return commit(status.ItemStatus{
				Item:     item,
				State:    status.StateSucceeded,
				Attempts: attempt,
			})
		}

		deps.Log.Append(item, attempt, string(out.reason))
		lastReason = out.reason

		if !out.reason.Retryable() {
			return commit(status.ItemStatus{
				Item:     item,
				State:    status.StateFailed,
				Reason:   out.reason,
				Attempts: attempt,
			})
		}

		if attempt < cfg.MaxRetries {
			if err := sleep(ctx, backoff(cfg, out.reason)); err != nil {
				return commit(aborted(item, attempt, deps))
			}
		}
	}

	return commit(status.ItemStatus{
		Item:     item,
		State:    status.StateFailed,
		Reason:   lastReason,
		Attempts: cfg.MaxRetries,
	})
}

// runAttempt performs one fetch, classifies it, and publishes on success.
func runAttempt(ctx context.Context, item string, attempt int, deps Deps, wellFormed func([]byte) bool) outcome {
	resp, err := deps.Client.Fetch(ctx, item)
	if err != nil {
		if ctx.Err() != nil {
			return outcome{reason: status.ReasonAborted}
		}
		return outcome{reason: status.ReasonTransport}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		if !wellFormed(resp.Body) {
			return outcome{reason: status.ReasonMalformedPayload}
		}
		if err := deps.Artifacts.Publish(ctx, item, attempt, resp.Body); err != nil {
			if ctx.Err() != nil {
				return outcome{reason: status.ReasonAborted}
			}
			// Storage hiccups are retried like network ones.
			return outcome{reason: status.ReasonTransport}
		}
		return outcome{success: true}
	case resp.StatusCode == http.StatusNotFound:
		return outcome{reason: status.ReasonNotFound}
	case resp.StatusCode == http.StatusTooManyRequests:
		return outcome{reason: status.ReasonRateLimited}
	case resp.StatusCode >= 500:
		return outcome{reason: status.ReasonServerError}
	default:
		return outcome{reason: status.ReasonUnclassifiedHTTP}
	}
}

// backoff returns the wait before the next attempt.
func backoff(cfg Config, reason status.Reason) time.Duration {
	if reason == status.ReasonRateLimited {
		return time.Duration(float64(cfg.RetryDelay) * cfg.RateLimitMultiplier)
	}
	return cfg.RetryDelay
}

// sleep waits for d or until ctx is canceled.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// aborted builds the terminal status for a worker told to stop.
func aborted(item string, attempts int, deps Deps) status.ItemStatus {
	deps.Log.Append(item, attempts, string(status.ReasonAborted))
	return status.ItemStatus{
		Item:     item,
		State:    status.StateFailed,
		Reason:   status.ReasonAborted,
		Attempts: attempts,
	}
}
