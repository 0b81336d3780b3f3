package supervisor

import (
	"fmt"
	"io"
	"sort"

	"github.com/AgnesNM/pokefetch/internal/status"
	"github.com/AgnesNM/pokefetch/internal/worker"
)

// Outcome is the aggregate result of a batch.
type Outcome int

const (
	// AllSucceeded means every item reached succeeded.
	AllSucceeded Outcome = iota
	// PartialSuccess means some items succeeded and some failed.
	PartialSuccess
	// AllFailed means no item succeeded.
	AllFailed
)

func (o Outcome) String() string {
	switch o {
	case AllSucceeded:
		return "all succeeded"
	case PartialSuccess:
		return "partial success"
	default:
		return "total failure"
	}
}

// Failure is one failed item in the report.
type Failure struct {
	Item      string
	Reason    status.Reason
	Exhausted bool // the item ran out of retries with a retryable reason
}

// Label renders the failure reason for the summary.
func (f Failure) Label() string {
	if f.Exhausted {
		return fmt.Sprintf("%s: %s", status.ReasonRetriesExhausted, f.Reason)
	}
	return string(f.Reason)
}

// Report aggregates the terminal statuses of a finished batch. It is
// built exactly once, from the statuses returned by exited workers.
type Report struct {
	Total     int
	Succeeded int
	Failures  []Failure
}

// buildReport derives the report from joined worker results. Failures
// are sorted by item so the summary is deterministic.
func buildReport(statuses []status.ItemStatus, wcfg worker.Config) *Report {
	r := &Report{Total: len(statuses)}
	maxRetries := wcfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	for _, st := range statuses {
		if st.State == status.StateSucceeded {
			r.Succeeded++
			continue
		}
		r.Failures = append(r.Failures, Failure{
			Item:      st.Item,
			Reason:    st.Reason,
			Exhausted: st.Attempts >= maxRetries && st.Reason.Retryable(),
		})
	}

	sort.Slice(r.Failures, func(i, j int) bool {
		return r.Failures[i].Item < r.Failures[j].Item
	})
	return r
}

// Outcome classifies the batch result.
func (r *Report) Outcome() Outcome {
	switch {
	case len(r.Failures) == 0:
		return AllSucceeded
	case r.Succeeded > 0:
		return PartialSuccess
	default:
		return AllFailed
	}
}

// WriteSummary prints the per-item failure list and totals.
func (r *Report) WriteSummary(w io.Writer) {
	fmt.Fprintf(w, "[pokefetch] Summary: %d/%d succeeded (%s)\n",
		r.Succeeded, r.Total, r.Outcome())
	for _, f := range r.Failures {
		fmt.Fprintf(w, "[pokefetch]   %s: %s\n", f.Item, f.Label())
	}
}
