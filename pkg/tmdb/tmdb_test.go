package tmdb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, hits *atomic.Int64, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		require.Equal(t, "/search/movie", r.URL.Path)
		require.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLookupReturnsFirstResultYear(t *testing.T) {
	srv := newServer(t, nil, `{"results":[{"release_date":"1995-12-15"},{"release_date":"2009-01-01"}]}`)
	c := NewWithBaseURL("test-key", srv.URL)

	year, ok, err := c.Lookup(context.Background(), "Heat")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1995, year)
}

func TestLookupNoResults(t *testing.T) {
	srv := newServer(t, nil, `{"results":[]}`)
	c := NewWithBaseURL("test-key", srv.URL)

	_, ok, err := c.Lookup(context.Background(), "Nonexistent Film")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLookupSkipsResultsWithoutDate(t *testing.T) {
	srv := newServer(t, nil, `{"results":[{"release_date":""},{"release_date":"2017-10-06"}]}`)
	c := NewWithBaseURL("test-key", srv.URL)

	year, ok, err := c.Lookup(context.Background(), "Blade Runner 2049")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2017, year)
}

func TestLookupCachesResults(t *testing.T) {
	var hits atomic.Int64
	srv := newServer(t, &hits, `{"results":[{"release_date":"2010-07-16"}]}`)
	c := NewWithBaseURL("test-key", srv.URL)

	for i := 0; i < 3; i++ {
		year, ok, err := c.Lookup(context.Background(), "Inception")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, 2010, year)
	}
	assert.Equal(t, int64(1), hits.Load())
}

func TestLookupCachesMisses(t *testing.T) {
	var hits atomic.Int64
	srv := newServer(t, &hits, `{"results":[]}`)
	c := NewWithBaseURL("test-key", srv.URL)

	for i := 0; i < 3; i++ {
		_, ok, err := c.Lookup(context.Background(), "Nope")
		require.NoError(t, err)
		require.False(t, ok)
	}
	assert.Equal(t, int64(1), hits.Load())
}

func TestLookupPacesRequests(t *testing.T) {
	srv := newServer(t, nil, `{"results":[]}`)
	c := NewWithBaseURL("test-key", srv.URL)

	start := time.Now()
	_, _, err := c.Lookup(context.Background(), "first")
	require.NoError(t, err)
	_, _, err = c.Lookup(context.Background(), "second")
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), minInterval)
}

func TestLookupServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)
	c := NewWithBaseURL("bad-key", srv.URL)

	_, _, err := c.Lookup(context.Background(), "Heat")
	assert.Error(t, err)
}
