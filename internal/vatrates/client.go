package vatrates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"euvat/pkg/platform/tracing"
)

const maxFeedBytes = 1 << 20

// Client downloads the rates feed.
type Client struct {
	url        string
	httpClient *http.Client
}

func NewClient(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		url:        url,
		httpClient: tracing.WrapHTTPClient(&http.Client{Timeout: timeout}, "vatrates"),
	}
}

// Fetch downloads and normalizes the feed. The table is returned even when
// it fails validation; callers decide whether to cache it.
func (c *Client) Fetch(ctx context.Context) (Table, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Table{}, fmt.Errorf("build rates request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Table{}, fmt.Errorf("fetch rates from %s: %w", c.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Table{}, fmt.Errorf("fetch rates from %s: unexpected status %d", c.url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return Table{}, fmt.Errorf("read rates body: %w", err)
	}
	var raw rawTable
	if err := json.Unmarshal(body, &raw); err != nil {
		return Table{}, fmt.Errorf("unexpected rates response: %w", err)
	}
	return normalize(raw), nil
}
