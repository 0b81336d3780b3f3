package worker

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"gocloud.dev/blob/memblob"

	"github.com/AgnesNM/pokefetch/internal/artifact"
	"github.com/AgnesNM/pokefetch/internal/fetchclient"
	"github.com/AgnesNM/pokefetch/internal/status"
)

// step is one scripted fetch outcome.
type step struct {
	code int
	body string
	err  error
}

// scriptedFetcher replays a fixed sequence of outcomes and records when
// each call happened. The last step repeats once the script runs out.
type scriptedFetcher struct {
	mu    sync.Mutex
	steps []step
	calls []time.Time
	block chan struct{} // when set, Fetch waits here until ctx cancels
}

func (f *scriptedFetcher) Fetch(ctx context.Context, item string) (*fetchclient.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, time.Now())
	n := len(f.calls) - 1
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-block:
		}
	}

	if n >= len(f.steps) {
		n = len(f.steps) - 1
	}
	s := f.steps[n]
	if s.err != nil {
		return nil, s.err
	}
	return &fetchclient.Response{StatusCode: s.code, Body: []byte(s.body)}, nil
}

func (f *scriptedFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *scriptedFetcher) gapBetween(a, b int) time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[b].Sub(f.calls[a])
}

const validBody = `{"id":25,"name":"pikachu"}`

func newDeps(t *testing.T, fetcher fetchclient.Fetcher) (Deps, *artifact.Store) {
	t.Helper()
	bucket := memblob.OpenBucket(nil)
	t.Cleanup(func() { bucket.Close() })

	store := status.NewStore()
	artifacts := artifact.NewStore(bucket)
	return Deps{
		Client:    fetcher,
		Artifacts: artifacts,
		Store:     store,
		Log:       status.NewLog(&bytes.Buffer{}),
	}, artifacts
}

func fastConfig() Config {
	return Config{
		MaxRetries:          3,
		RetryDelay:          20 * time.Millisecond,
		RateLimitMultiplier: 4,
	}
}

func TestSuccessFirstAttempt(t *testing.T) {
	fetcher := &scriptedFetcher{steps: []step{{code: http.StatusOK, body: validBody}}}
	deps, artifacts := newDeps(t, fetcher)
	deps.Store.Register("pikachu")

	st := Run(context.Background(), "pikachu", deps, fastConfig())

	if st.State != status.StateSucceeded || st.Attempts != 1 {
		t.Fatalf("expected succeeded after 1 attempt, got %+v", st)
	}
	if fetcher.callCount() != 1 {
		t.Errorf("expected 1 fetch, got %d", fetcher.callCount())
	}

	ok, err := artifacts.Exists(context.Background(), "pikachu")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !ok {
		t.Error("artifact missing after success")
	}
}

func TestNotFoundIsPermanent(t *testing.T) {
	fetcher := &scriptedFetcher{steps: []step{{code: http.StatusNotFound}}}
	deps, artifacts := newDeps(t, fetcher)
	deps.Store.Register("missingno")

	st := Run(context.Background(), "missingno", deps, fastConfig())

	if st.State != status.StateFailed || st.Reason != status.ReasonNotFound {
		t.Fatalf("expected failed(not_found), got %+v", st)
	}
	if st.Attempts != 1 {
		t.Errorf("404 must not be retried: %d attempts", st.Attempts)
	}

	ok, err := artifacts.Exists(context.Background(), "missingno")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if ok {
		t.Error("artifact present after failure")
	}
}

func TestRateLimitBackoffLongerThanGeneric(t *testing.T) {
	rateLimited := &scriptedFetcher{steps: []step{
		{code: http.StatusTooManyRequests},
		{code: http.StatusOK, body: validBody},
	}}
	generic := &scriptedFetcher{steps: []step{
		{code: http.StatusServiceUnavailable},
		{code: http.StatusOK, body: validBody},
	}}

	cfg := fastConfig()

	deps, _ := newDeps(t, rateLimited)
	deps.Store.Register("pikachu")
	st := Run(context.Background(), "pikachu", deps, cfg)
	if st.State != status.StateSucceeded || st.Attempts != 2 {
		t.Fatalf("expected succeeded after 2 attempts, got %+v", st)
	}

	deps2, _ := newDeps(t, generic)
	deps2.Store.Register("pikachu")
	if st := Run(context.Background(), "pikachu", deps2, cfg); st.State != status.StateSucceeded {
		t.Fatalf("expected succeeded, got %+v", st)
	}

	rlGap := rateLimited.gapBetween(0, 1)
	genGap := generic.gapBetween(0, 1)

	if rlGap < time.Duration(float64(cfg.RetryDelay)*cfg.RateLimitMultiplier) {
		t.Errorf("rate-limit gap %v shorter than scaled delay", rlGap)
	}
	if rlGap <= genGap {
		t.Errorf("rate-limit gap %v not longer than generic gap %v", rlGap, genGap)
	}
}

func TestRetriesExhaustedKeepsLastReason(t *testing.T) {
	fetcher := &scriptedFetcher{steps: []step{{code: http.StatusInternalServerError}}}
	deps, _ := newDeps(t, fetcher)
	deps.Store.Register("snorlax")

	st := Run(context.Background(), "snorlax", deps, fastConfig())

	if st.State != status.StateFailed || st.Reason != status.ReasonServerError {
		t.Fatalf("expected failed(server_error), got %+v", st)
	}
	if st.Attempts != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", st.Attempts)
	}
	if fetcher.callCount() != 3 {
		t.Errorf("expected 3 fetches, got %d", fetcher.callCount())
	}
}

func TestMalformedPayloadRetried(t *testing.T) {
	fetcher := &scriptedFetcher{steps: []step{
		{code: http.StatusOK, body: `{"truncated":`},
		{code: http.StatusOK, body: validBody},
	}}
	deps, _ := newDeps(t, fetcher)
	deps.Store.Register("pikachu")

	st := Run(context.Background(), "pikachu", deps, fastConfig())

	if st.State != status.StateSucceeded || st.Attempts != 2 {
		t.Fatalf("expected succeeded after 2 attempts, got %+v", st)
	}
}

func TestTransportErrorRetried(t *testing.T) {
	fetcher := &scriptedFetcher{steps: []step{
		{err: errors.New("dial tcp: connection refused")},
		{code: http.StatusOK, body: validBody},
	}}
	deps, _ := newDeps(t, fetcher)
	deps.Store.Register("pikachu")

	st := Run(context.Background(), "pikachu", deps, fastConfig())

	if st.State != status.StateSucceeded || st.Attempts != 2 {
		t.Fatalf("expected succeeded after 2 attempts, got %+v", st)
	}
}

func TestInvalidItemMakesNoNetworkCall(t *testing.T) {
	fetcher := &scriptedFetcher{steps: []step{{code: http.StatusOK, body: validBody}}}
	deps, _ := newDeps(t, fetcher)

	for _, item := range []string{"", "Pikachu", "pika chu", "-pikachu", "pikachu-", "pika/chu"} {
		deps.Store.Register(item)
		st := Run(context.Background(), item, deps, fastConfig())
		if st.State != status.StateFailed || st.Reason != status.ReasonInvalidInput {
			t.Errorf("%q: expected failed(invalid_input), got %+v", item, st)
		}
	}

	if fetcher.callCount() != 0 {
		t.Errorf("invalid items reached the network: %d calls", fetcher.callCount())
	}
}

func TestTerminalStatusCommittedExactlyOnce(t *testing.T) {
	fetcher := &scriptedFetcher{steps: []step{{code: http.StatusOK, body: validBody}}}
	deps, _ := newDeps(t, fetcher)
	deps.Store.Register("pikachu")

	st := Run(context.Background(), "pikachu", deps, fastConfig())

	if got := deps.Store.Get("pikachu"); got != st {
		t.Errorf("slot %+v differs from returned status %+v", got, st)
	}

	err := deps.Store.Set(status.ItemStatus{Item: "pikachu", State: status.StateRunning})
	var te *status.ErrTerminal
	if !errors.As(err, &te) {
		t.Errorf("terminal slot accepted another write: %v", err)
	}
}

func TestCancellationAbandonsRemainingRetries(t *testing.T) {
	fetcher := &scriptedFetcher{
		steps: []step{{code: http.StatusOK, body: validBody}},
		block: make(chan struct{}),
	}
	deps, artifacts := newDeps(t, fetcher)
	deps.Store.Register("pikachu")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	st := Run(ctx, "pikachu", deps, Config{MaxRetries: 5, RetryDelay: time.Minute, RateLimitMultiplier: 3})

	if st.State != status.StateFailed || st.Reason != status.ReasonAborted {
		t.Fatalf("expected failed(aborted), got %+v", st)
	}
	if fetcher.callCount() != 1 {
		t.Errorf("canceled worker kept attempting: %d calls", fetcher.callCount())
	}

	ok, err := artifacts.Exists(context.Background(), "pikachu")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if ok {
		t.Error("artifact present after aborted run")
	}
}

// cancelingFetcher cancels the run's context just before delivering a
// good response, so cancellation lands during the publish step.
type cancelingFetcher struct {
	cancel context.CancelFunc
}

func (f *cancelingFetcher) Fetch(ctx context.Context, item string) (*fetchclient.Response, error) {
	f.cancel()
	return &fetchclient.Response{StatusCode: http.StatusOK, Body: []byte(validBody)}, nil
}

func TestCancellationDuringPublishKeepsStatusAndArtifactInAgreement(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := &cancelingFetcher{cancel: cancel}
	deps, artifacts := newDeps(t, fetcher)
	deps.Store.Register("pikachu")

	st := Run(ctx, "pikachu", deps, fastConfig())

	ok, err := artifacts.Exists(context.Background(), "pikachu")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if st.State == status.StateSucceeded && !ok {
		t.Error("succeeded item has no artifact")
	}
	if st.State == status.StateFailed && ok {
		t.Errorf("failed item (%s) left a visible artifact", st.Reason)
	}
}

func TestSkipWhenArtifactPresent(t *testing.T) {
	fetcher := &scriptedFetcher{steps: []step{{code: http.StatusOK, body: validBody}}}
	deps, artifacts := newDeps(t, fetcher)
	deps.Store.Register("pikachu")

	if err := artifacts.Publish(context.Background(), "pikachu", 1, []byte(validBody)); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	st := Run(context.Background(), "pikachu", deps, fastConfig())
	if st.State != status.StateSucceeded || st.Attempts != 0 {
		t.Fatalf("expected cached success with 0 attempts, got %+v", st)
	}
	if fetcher.callCount() != 0 {
		t.Errorf("cached item reached the network: %d calls", fetcher.callCount())
	}
}

func TestForceRefetches(t *testing.T) {
	fetcher := &scriptedFetcher{steps: []step{{code: http.StatusOK, body: validBody}}}
	deps, artifacts := newDeps(t, fetcher)
	deps.Store.Register("pikachu")

	if err := artifacts.Publish(context.Background(), "pikachu", 1, []byte(`{"id":25,"name":"stale"}`)); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	cfg := fastConfig()
	cfg.Force = true
	st := Run(context.Background(), "pikachu", deps, cfg)

	if st.State != status.StateSucceeded || st.Attempts != 1 {
		t.Fatalf("expected refetch with 1 attempt, got %+v", st)
	}
	data, err := artifacts.Read(context.Background(), "pikachu")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(data) != validBody {
		t.Errorf("artifact not refreshed: %s", data)
	}
}

func TestValidateItem(t *testing.T) {
	valid := []string{"pikachu", "mr-mime", "25", "nidoran-f", "porygon2"}
	for _, item := range valid {
		if err := ValidateItem(item); err != nil {
			t.Errorf("ValidateItem(%q): %v", item, err)
		}
	}

	invalid := []string{"", "Pikachu", "pika chu", "pika_chu", "-a", "a-", "pika.chu"}
	for _, item := range invalid {
		if err := ValidateItem(item); err == nil {
			t.Errorf("ValidateItem(%q): expected error", item)
		}
	}

	long := make([]byte, MaxItemLen+1)
	for i := range long {
		long[i] = 'a'
	}
	if err := ValidateItem(string(long)); err == nil {
		t.Error("expected error for oversized item")
	}
}

func TestWellFormed(t *testing.T) {
	tests := []struct {
		body string
		want bool
	}{
		{`{"id":25,"name":"pikachu"}`, true},
		{`{"id":25,"name":"pikachu","height":4}`, true},
		{`{"name":"pikachu"}`, false},
		{`{"id":25}`, false},
		{`{"id":25,"name":""}`, false},
		{`[]`, false},
		{`{"id":25,`, false},
		{``, false},
		{`not json`, false},
	}

	for _, tt := range tests {
		if got := WellFormed([]byte(tt.body)); got != tt.want {
			t.Errorf("WellFormed(%q) = %v, want %v", tt.body, got, tt.want)
		}
	}
}
