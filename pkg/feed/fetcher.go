package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/repeater/v2"

	"github.com/umputun/feedwatch/pkg/domain"
)

// errCritical marks failures which retrying won't fix
var errCritical = errors.New("critical fetch error")

// criticalError wraps an error to signal repeater to stop retrying
type criticalError struct {
	err error
}

func (e *criticalError) Error() string { return e.err.Error() }

func (e *criticalError) Unwrap() error { return e.err }

func (e *criticalError) Is(target error) bool { return target == errCritical }

// Fetcher retrieves raw feed documents
type Fetcher interface {
	Fetch(ctx context.Context, feedURL string) (string, error)
}

// NewFetcher returns the relay fetcher if proxyURL is set, the direct one otherwise
func NewFetcher(proxyURL string, params FetcherParams) Fetcher {
	if proxyURL != "" {
		return NewProxyFetcher(proxyURL, params)
	}
	return NewHTTPFetcher(params)
}

// FetcherParams configures feed fetchers
type FetcherParams struct {
	Timeout     time.Duration // per request, includes reading the body
	UserAgent   string
	MaxBodySize int64 // response bodies above this size are rejected
	Retries     int   // extra attempts on transient failures
	RetryDelay  time.Duration
}

// HTTPFetcher fetches raw feed documents directly from their origin
type HTTPFetcher struct {
	client *http.Client
	params FetcherParams
}

// NewHTTPFetcher creates a new direct fetcher
func NewHTTPFetcher(params FetcherParams) *HTTPFetcher {
	params = withFetcherDefaults(params)
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: params.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		params: params,
	}
}

// Fetch retrieves the raw feed document. All failures are *domain.NetworkError.
func (f *HTTPFetcher) Fetch(ctx context.Context, feedURL string) (string, error) {
	var body string
	err := retry(ctx, f.params, func() error {
		b, err := get(ctx, f.client, feedURL, f.params)
		if err != nil {
			return err
		}
		body = string(b)
		return nil
	})
	if err != nil {
		return "", &domain.NetworkError{URL: feedURL, Err: err}
	}
	return body, nil
}

// ProxyFetcher fetches feeds through a relay of the allorigins kind.
// The relay answers with json {"contents": "...", "status": {"http_code": 200}}.
type ProxyFetcher struct {
	client   *http.Client
	proxyURL string
	params   FetcherParams
}

// relayResponse is the json envelope returned by the relay
type relayResponse struct {
	Contents *string `json:"contents"`
	Status   struct {
		URL      string `json:"url"`
		HTTPCode int    `json:"http_code"`
		Error    any    `json:"error"`
	} `json:"status"`
}

// NewProxyFetcher creates a fetcher going through the relay at proxyURL,
// i.e. https://allorigins.hexlet.app/get
func NewProxyFetcher(proxyURL string, params FetcherParams) *ProxyFetcher {
	params = withFetcherDefaults(params)
	return &ProxyFetcher{
		client:   &http.Client{Timeout: params.Timeout},
		proxyURL: proxyURL,
		params:   params,
	}
}

// Fetch retrieves the raw feed document via the relay. Relay failures and upstream
// error statuses are reported as *domain.NetworkError.
func (f *ProxyFetcher) Fetch(ctx context.Context, feedURL string) (string, error) {
	relayURL, err := f.relayURL(feedURL)
	if err != nil {
		return "", &domain.NetworkError{URL: feedURL, Err: err}
	}

	var contents string
	err = retry(ctx, f.params, func() error {
		b, err := get(ctx, f.client, relayURL, f.params)
		if err != nil {
			return err
		}
		var resp relayResponse
		if err := json.Unmarshal(b, &resp); err != nil {
			return &criticalError{err: fmt.Errorf("decode relay response: %w", err)}
		}
		if code := resp.Status.HTTPCode; code != 0 && (code < 200 || code > 299) {
			if code >= 400 && code < 500 {
				return &criticalError{err: fmt.Errorf("upstream status code: %d", code)}
			}
			return fmt.Errorf("upstream status code: %d", code)
		}
		if resp.Contents == nil {
			return fmt.Errorf("relay returned no contents: %v", resp.Status.Error)
		}
		contents = *resp.Contents
		return nil
	})
	if err != nil {
		return "", &domain.NetworkError{URL: feedURL, Err: err}
	}
	return contents, nil
}

// relayURL builds the relay request url for the given feed url
func (f *ProxyFetcher) relayURL(feedURL string) (string, error) {
	u, err := url.Parse(f.proxyURL)
	if err != nil {
		return "", &criticalError{err: fmt.Errorf("parse proxy url: %w", err)}
	}
	q := u.Query()
	q.Set("disableCache", "true")
	q.Set("url", feedURL)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// get performs a single GET and returns the body, 4xx responses are critical
func get(ctx context.Context, client *http.Client, reqURL string, params FetcherParams) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, &criticalError{err: fmt.Errorf("create request: %w", err)}
	}
	setRequestHeaders(req, params.UserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, &criticalError{err: err}
		}
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, params.MaxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > params.MaxBodySize {
		return nil, &criticalError{err: fmt.Errorf("response body exceeds %d bytes", params.MaxBodySize)}
	}
	return body, nil
}

// retry runs fn with backoff, critical errors and context cancellation stop it early
func retry(ctx context.Context, params FetcherParams, fn func() error) error {
	attempt := 0
	retrier := repeater.NewBackoff(params.Retries+1, params.RetryDelay, repeater.WithMaxDelay(10*params.RetryDelay))
	err := retrier.Do(ctx, func() error {
		attempt++
		err := fn()
		if err != nil && attempt <= params.Retries && !errors.Is(err, errCritical) {
			lgr.Printf("[DEBUG] fetch attempt %d failed, will retry: %v", attempt, err)
		}
		return err
	}, errCritical)
	if err == nil {
		return nil
	}
	var ce *criticalError
	if errors.As(err, &ce) {
		return ce.err
	}
	return err
}

func withFetcherDefaults(p FetcherParams) FetcherParams {
	if p.Timeout <= 0 {
		p.Timeout = 10 * time.Second
	}
	if p.UserAgent == "" {
		p.UserAgent = "feedwatch/1.0"
	}
	if p.MaxBodySize <= 0 {
		p.MaxBodySize = 10 * 1024 * 1024
	}
	if p.Retries < 0 {
		p.Retries = 0
	}
	if p.RetryDelay <= 0 {
		p.RetryDelay = 250 * time.Millisecond
	}
	return p
}
