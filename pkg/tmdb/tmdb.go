// Package tmdb looks up movie release years through the TMDB search
// API. Requests are paced to at most four per second and results,
// including misses, are cached per title for the lifetime of the
// client.
package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
)

const (
	defaultBaseURL = "https://api.themoviedb.org/3"
	minInterval    = 250 * time.Millisecond
	requestTimeout = 5 * time.Second
)

type cachedYear struct {
	year int
	ok   bool
}

// Client queries the TMDB movie search endpoint. It is safe for
// concurrent use.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client

	mu    sync.Mutex
	last  time.Time
	cache map[string]cachedYear
}

// New creates a Client with the given API key.
func New(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: requestTimeout},
		cache:   make(map[string]cachedYear),
	}
}

// NewWithBaseURL creates a Client against a custom endpoint, for tests.
func NewWithBaseURL(apiKey, baseURL string) *Client {
	c := New(apiKey)
	c.baseURL = baseURL
	return c
}

type searchResponse struct {
	Results []struct {
		ReleaseDate string `json:"release_date"`
	} `json:"results"`
}

// Lookup returns the release year of the first search result for
// title. ok is false when TMDB knows no such movie; that result is
// cached like any other.
func (c *Client) Lookup(ctx context.Context, title string) (int, bool, error) {
	c.mu.Lock()
	if hit, ok := c.cache[title]; ok {
		c.mu.Unlock()
		return hit.year, hit.ok, nil
	}
	c.pace()
	c.mu.Unlock()

	year, found, err := c.search(ctx, title)
	if err != nil {
		return 0, false, err
	}

	c.mu.Lock()
	c.cache[title] = cachedYear{year: year, ok: found}
	c.mu.Unlock()
	return year, found, nil
}

// pace sleeps until minInterval has passed since the previous request.
// Caller holds the mutex, so concurrent lookups stay spaced too.
func (c *Client) pace() {
	if wait := minInterval - time.Since(c.last); wait > 0 {
		time.Sleep(wait)
	}
	c.last = time.Now()
}

func (c *Client) search(ctx context.Context, title string) (int, bool, error) {
	q := url.Values{}
	q.Set("api_key", c.apiKey)
	q.Set("query", title)
	q.Set("include_adult", "false")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search/movie?"+q.Encode(), nil)
	if err != nil {
		return 0, false, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, false, fmt.Errorf("tmdb request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, false, fmt.Errorf("tmdb responded %s", resp.Status)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, false, fmt.Errorf("decoding tmdb response: %w", err)
	}

	for _, r := range parsed.Results {
		if len(r.ReleaseDate) >= 4 {
			year, err := strconv.Atoi(r.ReleaseDate[:4])
			if err == nil && year > 0 {
				return year, true, nil
			}
		}
	}
	return 0, false, nil
}
