// Package scraper fetches remote tiles and drains the staleness work queue.
package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/tilemirror/internal/tile"
)

// ErrFetchFailed indicates a single tile's remote fetch did not return usable
// bytes. Always soft: the worker logs it and moves on.
var ErrFetchFailed = eris.New("scraper: fetch failed")

// Fetcher retrieves the raw payload for one tile.
type Fetcher interface {
	Fetch(ctx context.Context, t tile.Tile) ([]byte, error)
}

// Client fetches tiles from an upstream TMS endpoint via HTTP GET.
type Client struct {
	endpoint  string
	extension string
	userAgent string
	client    *http.Client
}

// NewClient creates a tile fetch client for GET <endpoint>/{z}/{x}/{y}.<ext>.
func NewClient(endpoint, extension string) *Client {
	return &Client{
		endpoint:  endpoint,
		extension: extension,
		userAgent: "tilemirror/1.0",
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// URL returns the upstream URL for a tile.
func (c *Client) URL(t tile.Tile) string {
	return fmt.Sprintf("%s/%d/%d/%d.%s", c.endpoint, t.Z, t.X, t.Y, c.extension)
}

// Fetch performs one GET for the tile. Any transport error or non-2xx status
// is reported as ErrFetchFailed.
func (c *Client) Fetch(ctx context.Context, t tile.Tile) ([]byte, error) {
	url := c.URL(t)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrapf(ErrFetchFailed, "build request for %s: %v", t, err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(ErrFetchFailed, "%s: %v", t, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, eris.Wrapf(ErrFetchFailed, "%s: upstream returned %d", t, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrapf(ErrFetchFailed, "%s: read body: %v", t, err)
	}
	return data, nil
}
