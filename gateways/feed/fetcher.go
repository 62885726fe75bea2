// Package feed fetches the source blocklist document over HTTPS. The body is
// handed back as a stream so callers can parse incrementally instead of
// buffering the whole (historically ~1M line) document.
package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kvasov/domshield/domain"
)

// DefaultRequestTimeout bounds connection and header exchange. The body read
// itself is governed by the caller's context, since a large feed can
// legitimately stream for a while.
const DefaultRequestTimeout = 30 * time.Second

// progressGranularity is how many bytes accumulate between progress callbacks.
const progressGranularity = 256 * 1024

// Fetcher retrieves the feed document over HTTP(S).
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient replaces the underlying HTTP client.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithUserAgent sets the User-Agent header sent with feed requests.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) { f.userAgent = ua }
}

// NewFetcher creates a feed fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		client: &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: DefaultRequestTimeout,
			},
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch issues the request and returns the response body as a stream. The
// progress callback, when non-nil, receives the cumulative byte count as the
// body is consumed. The caller owns closing the returned reader.
func (f *Fetcher) Fetch(ctx context.Context, url string, progress func(bytes int64)) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: HTTP %d for %s", domain.ErrNetwork, resp.StatusCode, url)
	}

	return &countingReader{rc: resp.Body, progress: progress}, nil
}

// countingReader reports cumulative bytes read at a coarse granularity so the
// callback never dominates the read loop.
type countingReader struct {
	rc         io.ReadCloser
	progress   func(int64)
	total      int64
	unreported int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.rc.Read(p)
	if n > 0 {
		c.total += int64(n)
		c.unreported += int64(n)
		if c.progress != nil && (c.unreported >= progressGranularity || err == io.EOF) {
			c.progress(c.total)
			c.unreported = 0
		}
	}
	return n, err
}

func (c *countingReader) Close() error {
	if c.progress != nil && c.unreported > 0 {
		c.progress(c.total)
		c.unreported = 0
	}
	return c.rc.Close()
}
