// Package xfetch is the small HTTP fetch wrapper the cache client uses
// for manifest and blob GETs, grounded in the teacher's
// internal/registry.Client: a *http.Client with a sane default
// timeout, context-based requests, and non-2xx statuses turned into
// errors rather than silently returning an error body as bytes.
package xfetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client performs GET requests against arbitrary URLs. The zero value
// is not usable; construct with New.
type Client struct {
	http *http.Client
}

// New returns a Client with the teacher's default 30s timeout.
func New() *Client {
	return &Client{http: &http.Client{Timeout: 30 * time.Second}}
}

// NewWithHTTPClient allows callers (tests, or a CLI wanting custom
// transport settings) to supply their own *http.Client.
func NewWithHTTPClient(hc *http.Client) *Client {
	return &Client{http: hc}
}

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("xfetch: GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// Get issues a GET request to url and returns the full response body.
// A non-2xx status is reported as *StatusError so callers can
// distinguish it from a transport-level failure.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("xfetch: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("xfetch: GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("xfetch: read body %s: %w", url, err)
	}
	return body, nil
}
