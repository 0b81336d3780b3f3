//go:build integration

package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/AgnesNM/pokefetch/internal/artifact"
	"github.com/AgnesNM/pokefetch/internal/config"
	"github.com/AgnesNM/pokefetch/internal/testutils"
)

// TestFetchBatchAgainstMinio runs the full pipeline: stub catalog over
// HTTP, real object store in a container, mixed per-item outcomes.
func TestFetchBatchAgainstMinio(t *testing.T) {
	ctx := context.Background()

	catalog := testutils.StartCatalogServer(t, map[string]testutils.CatalogItem{
		"pikachu":   {ID: 25},
		"bulbasaur": {ID: 1, Script: []int{http.StatusTooManyRequests}},
		"snorlax":   {ID: 143, Script: []int{http.StatusInternalServerError, http.StatusInternalServerError, http.StatusInternalServerError}},
	})
	env := testutils.StartMinio(t, ctx, "pokefetch-it")

	cfg := config.Default()
	cfg.BaseURL = catalog.BaseURL()
	cfg.Bucket = env.BucketURL
	cfg.LogFile = filepath.Join(t.TempDir(), "attempts.log")
	cfg.Progress = false
	cfg.PollInterval = 20 * time.Millisecond
	cfg.Retry.Delay = 50 * time.Millisecond
	cfg.Retry.MaxRetries = 3

	items := []string{"pikachu", "bulbasaur", "snorlax", "missingno"}
	code := fetchBatch(ctx, items, cfg)
	if code != ExitPartial {
		t.Fatalf("expected partial-success exit code %d, got %d", ExitPartial, code)
	}

	store, err := artifact.Open(ctx, env.BucketURL)
	if err != nil {
		t.Fatalf("open artifact store: %v", err)
	}
	defer store.Close()

	for _, item := range []string{"pikachu", "bulbasaur"} {
		ok, err := store.Exists(ctx, item)
		if err != nil {
			t.Fatalf("Exists(%s): %v", item, err)
		}
		if !ok {
			t.Errorf("artifact missing for %s", item)
		}
	}
	for _, item := range []string{"snorlax", "missingno"} {
		ok, err := store.Exists(ctx, item)
		if err != nil {
			t.Fatalf("Exists(%s): %v", item, err)
		}
		if ok {
			t.Errorf("artifact present for failed item %s", item)
		}
	}

	if got := catalog.Requests("bulbasaur"); got != 2 {
		t.Errorf("expected bulbasaur to recover on attempt 2, got %d requests", got)
	}
	if got := catalog.Requests("snorlax"); got != 3 {
		t.Errorf("expected snorlax to exhaust 3 attempts, got %d requests", got)
	}
	if got := catalog.Requests("missingno"); got != 1 {
		t.Errorf("expected a single attempt for a 404 item, got %d requests", got)
	}

	data, err := os.ReadFile(cfg.LogFile)
	if err != nil {
		t.Fatalf("read attempt log: %v", err)
	}
	log := string(data)
	for _, want := range []string{"rate_limited", "server_error", "not_found", "succeeded"} {
		if !strings.Contains(log, want) {
			t.Errorf("attempt log missing %q:\n%s", want, log)
		}
	}
}
