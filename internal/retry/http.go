package retry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPError carries the status of a non-2xx response so the retry
// classifier can match it against the retryable status-code set.
type HTTPError struct {
	StatusCode int
	Status     string
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %s: %s", e.Status, e.URL)
}

// Fetch GETs url with retry semantics: transport errors are classified by
// message, and any non-2xx response is turned into an *HTTPError before
// classification, so only the configured status codes get retried.
//
// On success the response is returned with its body still open; the
// caller owns closing it.
func Fetch(ctx context.Context, client *http.Client, url string, opts Options) (*http.Response, error) {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return Do(ctx, func(ctx context.Context) (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, Permanent(err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			// Drain so the transport can reuse the connection across attempts.
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			_ = resp.Body.Close()
			return nil, &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, URL: url}
		}
		return resp, nil
	}, opts)
}

// FetchJSON GETs url like Fetch and decodes the body into T.
// A body that fails to decode is a permanent error, not a retry candidate.
func FetchJSON[T any](ctx context.Context, client *http.Client, url string, opts Options) (T, error) {
	var zero T
	resp, err := Fetch(ctx, client, url, opts)
	if err != nil {
		return zero, err
	}
	defer resp.Body.Close()

	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return zero, fmt.Errorf("decode %s: %w", url, err)
	}
	return v, nil
}
