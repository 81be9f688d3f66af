package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Sentinel errors for HTTP operations.
var (
	// ErrNotFound is returned for 404 responses. Not retryable.
	ErrNotFound = errors.New("not found")

	// ErrNetwork is returned for connection failures, timeouts and 5xx
	// responses. Wrapped as retryable where a retry can help.
	ErrNetwork = errors.New("network error")
)

// NewHTTPClient creates the http.Client used for endpoint calls.
// The timeout bounds a single attempt; retries are layered on top by [Retry].
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 15 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// GetJSON performs a single HTTP GET and returns the raw response body.
// Connection failures and 5xx responses come back wrapped in
// [RetryableError]; 404 maps to [ErrNotFound]; other non-200 statuses are
// permanent [ErrNetwork] failures.
func GetJSON(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, Retryable(fmt.Errorf("%w: %v", ErrNetwork, err))
	}
	defer resp.Body.Close()

	if err := checkStatus(resp.StatusCode); err != nil {
		return nil, err
	}
	return io.ReadAll(resp.Body)
}

func checkStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code >= 500:
		return Retryable(fmt.Errorf("%w: status %d", ErrNetwork, code))
	default:
		return fmt.Errorf("%w: status %d", ErrNetwork, code)
	}
}
