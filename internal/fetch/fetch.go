// Package fetch retrieves raw feed entries over HTTP and normalizes them
// into run-scoped candidates.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/rssking/rssking/internal/rssking"
)

const userAgent = "rssking/1.0"

// Client fetches and parses a single feed per call. A slow source is cut off
// by the client timeout and reported as a failed feed, never a stalled run.
type Client struct {
	http   *http.Client
	parser *gofeed.Parser
}

func NewClient(timeout time.Duration) *Client {
	return &Client{
		http:   &http.Client{Timeout: timeout},
		parser: gofeed.NewParser(),
	}
}

// Fetch pulls the feed and returns its normalized candidates, capped at the
// feed's configured max_items and in source order.
func (c *Client) Fetch(ctx context.Context, feed rssking.Feed) ([]rssking.Candidate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating feed request: %s", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error getting feed url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	parsed, err := c.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error parsing feed: %s", err)
	}

	maxItems := feed.MaxItems
	if maxItems <= 0 {
		maxItems = rssking.DefaultMaxItems
	}

	entries := parsed.Items
	if len(entries) > maxItems {
		entries = entries[:maxItems]
	}

	candidates := make([]rssking.Candidate, 0, len(entries))
	for _, entry := range entries {
		candidate, ok := Normalize(entry, feed)
		if !ok {
			continue
		}
		candidates = append(candidates, candidate)
	}

	return candidates, nil
}
