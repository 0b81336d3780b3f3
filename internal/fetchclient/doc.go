// Package fetchclient performs single catalog record fetches over HTTP.
//
// This package handles:
//   - Connection pooling across a batch of items
//   - Separate connect and total request timeouts
//   - Distinguishing transport errors from HTTP-level outcomes
//
// It deliberately does not retry: the worker owns the retry policy and
// calls Fetch once per attempt.
//
// # Usage
//
//	client := fetchclient.New(fetchclient.Options{
//	    BaseURL:        "https://pokeapi.co/api/v2/pokemon",
//	    ConnectTimeout: 5 * time.Second,
//	    TotalTimeout:   30 * time.Second,
//	})
//
//	resp, err := client.Fetch(ctx, "pikachu")
//	// err != nil        -> transport failure (resolve/connect/timeout)
//	// resp.StatusCode   -> HTTP outcome, body already read
package fetchclient
