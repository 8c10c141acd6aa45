package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/feedwatch/pkg/domain"
)

const testRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Test Feed</title>
<item><title>Test Article 1</title><link>https://example.com/article1</link></item>
</channel></rss>`

func TestHTTPFetcher_Fetch(t *testing.T) {
	t.Run("valid rss feed", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "feedwatch-test", r.Header.Get("User-Agent"))
			assert.Contains(t, r.Header.Get("Accept"), "application/rss+xml")
			w.Header().Set("Content-Type", "application/rss+xml")
			_, _ = w.Write([]byte(testRSS))
		}))
		defer server.Close()

		fetcher := NewHTTPFetcher(FetcherParams{Timeout: 5 * time.Second, UserAgent: "feedwatch-test"})
		body, err := fetcher.Fetch(context.Background(), server.URL)
		require.NoError(t, err)
		assert.Equal(t, testRSS, body)
	})

	t.Run("timeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(100 * time.Millisecond)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		fetcher := NewHTTPFetcher(FetcherParams{Timeout: 10 * time.Millisecond})
		body, err := fetcher.Fetch(context.Background(), server.URL)
		require.Error(t, err)
		assert.Empty(t, body)

		var netErr *domain.NetworkError
		require.ErrorAs(t, err, &netErr)
		assert.Equal(t, server.URL, netErr.URL)
	})

	t.Run("invalid url", func(t *testing.T) {
		fetcher := NewHTTPFetcher(FetcherParams{Timeout: time.Second, Retries: 3, RetryDelay: time.Millisecond})
		_, err := fetcher.Fetch(context.Background(), "not-a-valid-url")
		require.Error(t, err)
		var netErr *domain.NetworkError
		assert.ErrorAs(t, err, &netErr)
	})

	t.Run("server error is retried", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_, _ = w.Write([]byte(testRSS))
		}))
		defer server.Close()

		fetcher := NewHTTPFetcher(FetcherParams{Timeout: time.Second, Retries: 2, RetryDelay: time.Millisecond})
		body, err := fetcher.Fetch(context.Background(), server.URL)
		require.NoError(t, err)
		assert.Equal(t, testRSS, body)
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	})

	t.Run("server error exhausts retries", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		fetcher := NewHTTPFetcher(FetcherParams{Timeout: time.Second, Retries: 1, RetryDelay: time.Millisecond})
		_, err := fetcher.Fetch(context.Background(), server.URL)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected status code: 500")
		assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	})

	t.Run("retries disabled", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		fetcher := NewHTTPFetcher(FetcherParams{Timeout: time.Second, Retries: 0, RetryDelay: time.Millisecond})
		_, err := fetcher.Fetch(context.Background(), server.URL)
		require.Error(t, err)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("not found is not retried", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		fetcher := NewHTTPFetcher(FetcherParams{Timeout: time.Second, Retries: 3, RetryDelay: time.Millisecond})
		_, err := fetcher.Fetch(context.Background(), server.URL)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected status code: 404")
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("body too large", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(strings.Repeat("x", 100)))
		}))
		defer server.Close()

		fetcher := NewHTTPFetcher(FetcherParams{Timeout: time.Second, MaxBodySize: 10})
		_, err := fetcher.Fetch(context.Background(), server.URL)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exceeds 10 bytes")
	})

	t.Run("canceled context", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(testRSS))
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		fetcher := NewHTTPFetcher(FetcherParams{Timeout: time.Second})
		_, err := fetcher.Fetch(ctx, server.URL)
		require.Error(t, err)
	})
}

func TestProxyFetcher_Fetch(t *testing.T) {
	relay := func(t *testing.T, handler func(target string) (int, any)) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "true", r.URL.Query().Get("disableCache"))
			code, resp := handler(r.URL.Query().Get("url"))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(code)
			_ = json.NewEncoder(w).Encode(resp)
		}))
	}

	t.Run("contents returned", func(t *testing.T) {
		server := relay(t, func(target string) (int, any) {
			assert.Equal(t, "https://example.com/feed.xml?a=1&b=2", target)
			return http.StatusOK, map[string]any{"contents": testRSS, "status": map[string]any{"http_code": 200}}
		})
		defer server.Close()

		fetcher := NewProxyFetcher(server.URL+"/get", FetcherParams{Timeout: time.Second})
		body, err := fetcher.Fetch(context.Background(), "https://example.com/feed.xml?a=1&b=2")
		require.NoError(t, err)
		assert.Equal(t, testRSS, body)
	})

	t.Run("upstream not found", func(t *testing.T) {
		var calls int32
		server := relay(t, func(string) (int, any) {
			atomic.AddInt32(&calls, 1)
			return http.StatusOK, map[string]any{"contents": "not found", "status": map[string]any{"http_code": 404}}
		})
		defer server.Close()

		fetcher := NewProxyFetcher(server.URL, FetcherParams{Timeout: time.Second, Retries: 2, RetryDelay: time.Millisecond})
		_, err := fetcher.Fetch(context.Background(), "https://example.com/feed.xml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "upstream status code: 404")
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

		var netErr *domain.NetworkError
		assert.ErrorAs(t, err, &netErr)
	})

	t.Run("no contents", func(t *testing.T) {
		server := relay(t, func(string) (int, any) {
			return http.StatusOK, map[string]any{"contents": nil, "status": map[string]any{"error": "dns failure"}}
		})
		defer server.Close()

		fetcher := NewProxyFetcher(server.URL, FetcherParams{Timeout: time.Second, RetryDelay: time.Millisecond})
		_, err := fetcher.Fetch(context.Background(), "https://example.com/feed.xml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "relay returned no contents")
	})

	t.Run("relay failure", func(t *testing.T) {
		server := relay(t, func(string) (int, any) {
			return http.StatusServiceUnavailable, map[string]any{}
		})
		defer server.Close()

		fetcher := NewProxyFetcher(server.URL, FetcherParams{Timeout: time.Second, RetryDelay: time.Millisecond})
		_, err := fetcher.Fetch(context.Background(), "https://example.com/feed.xml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected status code: 503")
	})

	t.Run("bad json", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>proxy error</html>"))
		}))
		defer server.Close()

		fetcher := NewProxyFetcher(server.URL, FetcherParams{Timeout: time.Second})
		_, err := fetcher.Fetch(context.Background(), "https://example.com/feed.xml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode relay response")
	})
}

func TestNewFetcher(t *testing.T) {
	_, ok := NewFetcher("", FetcherParams{}).(*HTTPFetcher)
	assert.True(t, ok)

	pf, ok := NewFetcher("https://allorigins.hexlet.app/get", FetcherParams{}).(*ProxyFetcher)
	require.True(t, ok)
	u, err := pf.relayURL("https://example.com/feed.xml")
	require.NoError(t, err)
	assert.Equal(t, "https://allorigins.hexlet.app/get?disableCache=true&url=https%3A%2F%2Fexample.com%2Ffeed.xml", u)
	assert.Equal(t, 10*time.Second, pf.params.Timeout, "defaults applied")
}
