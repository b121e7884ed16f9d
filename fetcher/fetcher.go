// Package fetcher retrieves map tiles from the OpenFlightMaps tile API and
// streams them back in completion order under a fixed concurrency cap.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/go-kit/log"
	"github.com/paulmach/orb/maptile"
)

// DefaultBaseURL is the production tile host.
const DefaultBaseURL = "https://nwy-tiles-api.prod.newaydata.com"

// Progress receives one Add(1) per resolved tile, success or permanent
// failure. *progressbar.ProgressBar satisfies it.
type Progress interface {
	Add(num int) error
}

// Options configures the fetch pipeline.
type Options struct {
	// Concurrency is the maximum number of tile fetches in flight.
	Concurrency int

	// RetryLimit is the number of attempts per tile before the tile is
	// reported as a permanent failure.
	RetryLimit int

	// Backoff is the base backoff duration; attempt n sleeps n × Backoff
	// before the next attempt.
	Backoff time.Duration

	// BackoffAfterFinal also sleeps after the last failed attempt, matching
	// the historical behavior. It only delays failure reporting, so it is
	// off by default.
	BackoffAfterFinal bool

	// Timeout bounds a single HTTP request.
	Timeout time.Duration

	// Progress is an optional progress sink.
	Progress Progress
}

// DefaultOptions returns options matching the production defaults.
func DefaultOptions() Options {
	return Options{
		Concurrency: 10,
		RetryLimit:  3,
		Backoff:     500 * time.Millisecond,
		Timeout:     30 * time.Second,
	}
}

// Client fetches tiles for one cycle from one tile host. The underlying HTTP
// connection pool is shared by all concurrent fetches.
type Client struct {
	client  *http.Client
	baseURL string
	cycle   string
	opts    Options
	logger  log.Logger
}

// New returns a tile fetching client. cycle is the AIRAC cycle identifier
// embedded in the request path, e.g. "2502" or "latest".
func New(baseURL, cycle string, logger log.Logger, opts Options) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultOptions().Concurrency
	}
	if opts.RetryLimit <= 0 {
		opts.RetryLimit = DefaultOptions().RetryLimit
	}
	if opts.Backoff <= 0 {
		opts.Backoff = DefaultOptions().Backoff
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}

	transport := &http.Transport{
		MaxIdleConnsPerHost: opts.Concurrency,
		MaxIdleConns:        opts.Concurrency * 2,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		baseURL: baseURL,
		cycle:   cycle,
		opts:    opts,
		logger:  log.With(logger, "component", "fetcher"),
	}
}

// TileURL builds the request URL for a tile.
func (c *Client) TileURL(t maptile.Tile) string {
	return fmt.Sprintf("%s/tiles/%d/%d/%d.png?path=%s/aero/latest",
		c.baseURL, t.Z, t.X, t.Y, c.cycle)
}

// Fetch retrieves one tile, retrying up to RetryLimit attempts. Only a full
// 200 body counts as success; any other status or transport error is an
// attempt failure followed by a backoff sleep.
func (c *Client) Fetch(ctx context.Context, t maptile.Tile) ([]byte, error) {
	url := c.TileURL(t)

	var lastErr error
	for attempt := 1; attempt <= c.opts.RetryLimit; attempt++ {
		data, err := c.get(ctx, url)
		if err == nil {
			return data, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err

		if attempt < c.opts.RetryLimit || c.opts.BackoffAfterFinal {
			if err := c.backoff(ctx, attempt); err != nil {
				return nil, err
			}
		}
	}

	return nil, fmt.Errorf("tile %d/%d/%d failed after %d attempts: %w",
		t.Z, t.X, t.Y, c.opts.RetryLimit, lastErr)
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)

		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return data, nil
}

// backoff sleeps attempt × Backoff, or returns early when ctx is done.
func (c *Client) backoff(ctx context.Context, attempt int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Duration(attempt) * c.opts.Backoff):
		return nil
	}
}
