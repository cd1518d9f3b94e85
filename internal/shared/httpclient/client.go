// Package httpclient is the shared outbound HTTP client used by every
// external collaborator (content providers, indexer APIs, scraper
// aggregators, downloader API, media library server). It wraps the
// teacher's bare net/http helper (shared/http/client.go) with the
// cenkalti/backoff retry policy spec §4.10 calls for: external
// transient failures are retried within-call with backoff, and
// permanent failures surface as apperr.ExternalPermanent without retry.
package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"reelarr/internal/apperr"
)

// DefaultClient is a shared HTTP client with sensible defaults.
var DefaultClient = &http.Client{
	Timeout: 15 * time.Second,
}

// LongTimeoutClient is for operations that may take longer.
var LongTimeoutClient = &http.Client{
	Timeout: 30 * time.Second,
}

// RetryPolicy bounds how long GetWithRetry keeps retrying a transient
// failure before giving up and returning apperr.ExternalTransient.
type RetryPolicy struct {
	MaxElapsed time.Duration
}

// DefaultRetryPolicy matches the teacher's per-indexer request budget.
var DefaultRetryPolicy = RetryPolicy{MaxElapsed: 30 * time.Second}

// classify maps an HTTP status code to the spec §7 error kind.
func classify(status int) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusTooManyRequests, status >= 500:
		return fmt.Errorf("upstream status %d: %w", status, apperr.ExternalTransient)
	case status >= 400:
		return fmt.Errorf("upstream status %d: %w", status, apperr.ExternalPermanent)
	default:
		return fmt.Errorf("unexpected upstream status %d", status)
	}
}

// GetWithRetry performs an HTTP GET, retrying ExternalTransient failures
// with exponential backoff up to policy.MaxElapsed. ExternalPermanent
// failures and context cancellation are never retried.
func GetWithRetry(ctx context.Context, client *http.Client, apiURL string, policy RetryPolicy) (*http.Response, error) {
	if client == nil {
		client = DefaultClient
	}
	if policy.MaxElapsed <= 0 {
		policy = DefaultRetryPolicy
	}

	var resp *http.Response
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}

		r, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("%w: %w", apperr.ExternalTransient, err)
		}

		if kindErr := classify(r.StatusCode); kindErr != nil {
			r.Body.Close()
			if apperr.Transient(kindErr) {
				return kindErr
			}
			return backoff.Permanent(kindErr)
		}

		resp = r
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxElapsedTime(backoff.NewExponentialBackOff(), policy.MaxElapsed), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, err
	}
	return resp, nil
}

// BuildQueryURL builds a URL with query parameters.
func BuildQueryURL(baseURL string, params map[string]string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return baseURL
	}
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// ReadResponseBody reads and closes the entire response body.
func ReadResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// DecodeJSONResponse decodes and closes a JSON response body.
func DecodeJSONResponse(resp *http.Response, v interface{}) error {
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
