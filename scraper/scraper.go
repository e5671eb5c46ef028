// Package scraper talks to the browser-automation bridge service that
// fronts Instagram: profile lookups, paged discovery search and direct
// message delivery. The bridge owns the logged-in browser; this package is
// a thin HTTP client around it that classifies failures as retryable or
// permanent for the workflow retry policy.
package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/creatorops/outreach/core"
)

// Options configure the bridge client.
type Options struct {
	// BaseURL is the bridge service root, e.g. "http://127.0.0.1:8090".
	BaseURL string
	// HTTPClient overrides the default client; its timeout wins over Timeout.
	HTTPClient *http.Client
	// Timeout bounds each bridge call when no HTTPClient is supplied.
	Timeout time.Duration
}

// Client is an HTTP bridge client implementing core.Scraper.
type Client struct {
	base   string
	client *http.Client
}

// NewClient constructs a bridge client.
func NewClient(optFns ...func(o *Options)) *Client {
	opts := Options{
		BaseURL: "http://127.0.0.1:8090",
		Timeout: 30 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		base:   strings.TrimSuffix(opts.BaseURL, "/"),
		client: httpClient,
	}
}

// FetchProfile returns structured data for one account. A lookup that
// matches several accounts comes back with Candidates set so the workflow
// can ask the operator to disambiguate.
func (c *Client) FetchProfile(ctx context.Context, username string) (*core.Profile, error) {
	var profile core.Profile
	err := c.getJSON(ctx, "/profiles/"+url.PathEscape(username), nil, &profile)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// SearchProfiles returns one page of discovery results for a query.
func (c *Client) SearchProfiles(ctx context.Context, query string, page, perPage int) (*core.SearchPage, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))

	var result core.SearchPage
	if err := c.getJSON(ctx, "/search", q, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.base + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return core.Permanent("scraper", fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return classifyTransportErr("scraper", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return classifyStatus("scraper", resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return core.Permanent("scraper", fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// classifyTransportErr marks network-level failures retryable unless the
// caller's context ended.
func classifyTransportErr(collab string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return core.Transient(collab, err)
}

// classifyStatus maps bridge status codes onto the retry policy: rate
// limits and server errors are transient, everything else is permanent.
func classifyStatus(collab string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	err := fmt.Errorf("bridge returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return core.Transient(collab, err)
	}
	return core.Permanent(collab, err)
}

var _ core.Scraper = (*Client)(nil)
