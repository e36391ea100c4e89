// Package upstream queries the public firepit release feed so clients can be
// told when a newer build exists.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/firepit-chat/firepit/internal/apicache"
)

const releaseCacheKey = "upstream:release:latest"

// Release describes the newest published build.
type Release struct {
	Version     string    `json:"version"`
	PublishedAt time.Time `json:"published_at"`
	URL         string    `json:"url"`
}

// ReleaseClient fetches the latest release, collapsing concurrent callers
// into a single outbound request via the dedupe cache.
type ReleaseClient struct {
	http    *http.Client
	feedURL string
	cache   *apicache.Cache
	ttl     time.Duration
}

// NewReleaseClient constructs a ReleaseClient. A nil httpClient falls back
// to a client with a 10s timeout.
func NewReleaseClient(httpClient *http.Client, feedURL string, cache *apicache.Cache, ttl time.Duration) *ReleaseClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &ReleaseClient{http: httpClient, feedURL: feedURL, cache: cache, ttl: ttl}
}

// Latest returns the newest release from the feed, served from cache when
// fresh.
func (c *ReleaseClient) Latest(ctx context.Context) (Release, error) {
	v, err := c.cache.Dedupe(ctx, releaseCacheKey, c.ttl, c.fetch)
	if err != nil {
		return Release{}, err
	}
	release, ok := v.(Release)
	if !ok {
		return Release{}, fmt.Errorf("upstream: unexpected cached value %T", v)
	}
	return release, nil
}

// Invalidate drops the cached release so the next Latest call refetches.
func (c *ReleaseClient) Invalidate() {
	c.cache.Delete(releaseCacheKey)
}

func (c *ReleaseClient) fetch(ctx context.Context) (any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("upstream: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream: fetch release feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream: release feed status %d", resp.StatusCode)
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("upstream: decode release feed: %w", err)
	}
	return release, nil
}
