package fetchclient

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultUserAgent = "pokefetch/1.0"

// maxBodySize caps how much of a response body is read. Catalog records
// are small JSON documents; anything larger is truncated and will fail
// payload validation.
const maxBodySize = 8 * 1024 * 1024

// Options configures the fetch client.
type Options struct {
	// BaseURL is the catalog endpoint; item names are appended as one
	// path segment.
	BaseURL string

	// ConnectTimeout bounds DNS resolution plus TCP connect.
	// Default: 5s
	ConnectTimeout time.Duration

	// TotalTimeout bounds the whole request including body read.
	// Default: 30s
	TotalTimeout time.Duration

	// MaxIdleConnsPerHost sets the maximum idle connections per host.
	// Default: 16
	MaxIdleConnsPerHost int

	// UserAgent overrides the User-Agent header.
	UserAgent string
}

// DefaultOptions returns options with sensible defaults (BaseURL unset).
func DefaultOptions() Options {
	return Options{
		ConnectTimeout:      5 * time.Second,
		TotalTimeout:        30 * time.Second,
		MaxIdleConnsPerHost: 16,
	}
}

// Response is the outcome of one successful HTTP exchange. The body has
// already been read and the connection released.
type Response struct {
	StatusCode int
	Body       []byte
}

// Fetcher is the single-attempt fetch contract consumed by the worker.
type Fetcher interface {
	Fetch(ctx context.Context, item string) (*Response, error)
}

// Client fetches catalog records. It is safe for concurrent use.
type Client struct {
	client *http.Client
	opts   Options
}

// New creates a Client with the given options.
func New(opts Options) *Client {
	def := DefaultOptions()
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = def.ConnectTimeout
	}
	if opts.TotalTimeout <= 0 {
		opts.TotalTimeout = def.TotalTimeout
	}
	if opts.MaxIdleConnsPerHost <= 0 {
		opts.MaxIdleConnsPerHost = def.MaxIdleConnsPerHost
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}

	dialer := &net.Dialer{Timeout: opts.ConnectTimeout}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		MaxIdleConnsPerHost: opts.MaxIdleConnsPerHost,
		MaxIdleConns:        opts.MaxIdleConnsPerHost * 2,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.TotalTimeout,
		},
		opts: opts,
	}
}

// Fetch performs exactly one GET for item and reads the full body.
//
// A non-nil error means the exchange never produced an HTTP status
// (resolve, connect, TLS, timeout, canceled context). HTTP-level
// failures are reported through Response.StatusCode with a nil error.
func (c *Client) Fetch(ctx context.Context, item string) (*Response, error) {
	u, err := itemURL(c.opts.BaseURL, item)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		// Body read failures (reset, total timeout mid-read) count as
		// transport errors just like a failed connect.
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

// itemURL joins base and item into the record URL.
func itemURL(base, item string) (string, error) {
	if base == "" {
		return "", fmt.Errorf("fetchclient: base URL is empty")
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base URL: %w", err)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + url.PathEscape(item)
	return u.String(), nil
}
