package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/AgnesNM/pokefetch/internal/artifact"
	"github.com/AgnesNM/pokefetch/internal/fetchclient"
	"github.com/AgnesNM/pokefetch/internal/progress"
	"github.com/AgnesNM/pokefetch/internal/status"
	"github.com/AgnesNM/pokefetch/internal/worker"
)

// cleanupTimeout bounds staged-artifact deletion during cleanup.
const cleanupTimeout = 30 * time.Second

// Config tunes the orchestration.
type Config struct {
	// Worker is the per-item retry configuration.
	Worker worker.Config

	// MaxParallel caps concurrently running workers. 0 dispatches one
	// worker per item with no ceiling.
	MaxParallel int

	// PollInterval is the delay between status store polls.
	// Default: 250ms
	PollInterval time.Duration

	// GracePeriod is how long a stopped worker may take to exit before
	// it is abandoned.
	// Default: 5s
	GracePeriod time.Duration
}

func (c Config) applyDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 250 * time.Millisecond
	}
	if c.GracePeriod <= 0 {
		c.GracePeriod = 5 * time.Second
	}
	return c
}

// Deps are the collaborators shared by the supervisor and its workers.
type Deps struct {
	Client    fetchclient.Fetcher
	Artifacts *artifact.Store
	Log       *status.Log

	// Reporter receives status snapshots while workers run. Optional.
	Reporter *progress.Reporter
}

func (d Deps) validate() error {
	if d.Client == nil {
		return errors.New("supervisor: fetch client is nil")
	}
	if d.Artifacts == nil {
		return errors.New("supervisor: artifact store is nil")
	}
	if d.Log == nil {
		return errors.New("supervisor: attempt log is nil")
	}
	return nil
}

// Run fetches every item and returns the aggregate report. Setup errors
// (bad dependencies, empty or duplicated batch) are returned before any
// worker is dispatched; per-item failures are contained in the report.
func Run(ctx context.Context, items []string, deps Deps, cfg Config) (*Report, error) {
	cfg = cfg.applyDefaults()

	if err := deps.validate(); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, errors.New("supervisor: no items to fetch")
	}
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if seen[item] {
			return nil, fmt.Errorf("supervisor: duplicate item %q", item)
		}
		seen[item] = true
	}

	store := status.NewStore()
	store.Register(items...)

	workerCtx, stop := context.WithCancel(ctx)
	defer stop()

	var wg sync.WaitGroup
	results := make(chan status.ItemStatus, len(items))

	var sem chan struct{}
	if cfg.MaxParallel > 0 {
		sem = make(chan struct{}, cfg.MaxParallel)
	}

	wdeps := worker.Deps{
		Client:    deps.Client,
		Artifacts: deps.Artifacts,
		Store:     store,
		Log:       deps.Log,
	}

	for _, item := range items {
		wg.Add(1)
		go func(item string) {
			defer wg.Done()
			if sem != nil {
				select {
				case sem <- struct{}{}:
					defer func() { <-sem }()
				case <-workerCtx.Done():
					// Run anyway: the worker observes the canceled
					// context and commits an aborted status.
				}
			}
			results <- worker.Run(workerCtx, item, wdeps, cfg.Worker)
		}(item)
	}

	stopMonitor := startMonitor(deps.Reporter, store, cfg.PollInterval)

	var cleanupOnce sync.Once
	cleanup := func() {
		cleanupOnce.Do(func() {
			stop()
			waitTimeout(&wg, cfg.GracePeriod)
			cctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
			defer cancel()
			deps.Artifacts.CleanStaging(cctx)
		})
	}
	defer cleanup()

	collected := collect(ctx, results, len(items), stop, cfg.GracePeriod)

	// Workers missing from collected did not exit within the grace
	// period after a stop; account for them as aborted. The status is
	// committed through the store so the final snapshot agrees with the
	// report even when a worker never came back.
	if len(collected) < len(items) {
		for _, item := range items {
			if _, ok := collectedItem(collected, item); !ok {
				st := status.ItemStatus{
					Item:   item,
					State:  status.StateFailed,
					Reason: status.ReasonAborted,
				}
				if err := store.Set(st); err != nil {
					// The straggler committed between the deadline and
					// now; its own terminal status wins.
					st = store.Get(item)
				} else {
					deps.Log.Append(item, 0, string(status.ReasonAborted))
				}
				collected = append(collected, st)
			}
		}
	}

	stopMonitor()
	if deps.Reporter != nil {
		deps.Reporter.Finish(store.Snapshot())
	}

	cleanup()
	return buildReport(collected, cfg.Worker), nil
}

// collect gathers terminal statuses from exited workers. On cancellation
// it keeps draining for the grace period, then gives up on stragglers.
func collect(ctx context.Context, results <-chan status.ItemStatus, total int, stop func(), grace time.Duration) []status.ItemStatus {
	collected := make([]status.ItemStatus, 0, total)

	for len(collected) < total {
		select {
		case st := <-results:
			collected = append(collected, st)
		case <-ctx.Done():
			stop()
			deadline := time.NewTimer(grace)
			defer deadline.Stop()
			for len(collected) < total {
				select {
				case st := <-results:
					collected = append(collected, st)
				case <-deadline.C:
					return collected
				}
			}
			return collected
		}
	}
	return collected
}

func collectedItem(statuses []status.ItemStatus, item string) (status.ItemStatus, bool) {
	for _, st := range statuses {
		if st.Item == item {
			return st, true
		}
	}
	return status.ItemStatus{}, false
}

// startMonitor polls the store and feeds snapshots to the reporter
// until every item shows a terminal state. The returned func stops the
// poll loop early and does not return until the loop has exited, so the
// reporter is quiescent afterwards.
func startMonitor(reporter *progress.Reporter, store *status.Store, interval time.Duration) func() {
	if reporter == nil {
		return func() {}
	}

	done := make(chan struct{})
	stopped := make(chan struct{})

	reporter.Start()
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				reporter.Update(store.Snapshot())
				if store.AllTerminal() {
					return
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			<-stopped
		})
	}
}

// waitTimeout waits for wg up to d. Returns true if the group finished.
func waitTimeout(wg *sync.WaitGroup, d time.Duration) bool {
	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return true
	case <-time.After(d):
		return false
	}
}
