package main

import (
	"context"
	"testing"

	"github.com/AgnesNM/pokefetch/internal/artifact"
)

func TestVerifyExitCodes(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := artifact.Open(ctx, bucketURL(dir))
	if err != nil {
		t.Fatalf("open artifact store: %v", err)
	}
	if err := store.Publish(ctx, "pikachu", 1, []byte(`{"id":25,"name":"pikachu"}`)); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	// A truncated payload, as left behind by a misbehaving upstream.
	if err := store.Publish(ctx, "glitch", 1, []byte(`{"id":`)); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close artifact store: %v", err)
	}

	cases := []struct {
		name  string
		items []string
		want  int
	}{
		{"all present", []string{"pikachu"}, ExitSuccess},
		{"some missing", []string{"pikachu", "missingno"}, ExitPartial},
		{"all missing", []string{"missingno"}, ExitFailure},
		{"corrupt payload not counted", []string{"glitch"}, ExitFailure},
		{"corrupt alongside good", []string{"pikachu", "glitch"}, ExitPartial},
		{"invalid name", []string{"Pikachu!"}, ExitFailure},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			args := append([]string{"-bucket", dir}, tc.items...)
			if got := runVerify(args); got != tc.want {
				t.Errorf("exit code %d, want %d", got, tc.want)
			}
		})
	}
}
