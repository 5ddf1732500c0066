/*
Shared HTTP plumbing for the price and subgraph clients. Requests are retried with a linear backoff,
the same way for every upstream, and bounded by the caller's context.
*/

package datafetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	ErrHTTPStatus    = errors.New("unexpected HTTP status")
	ErrEmptyResponse = errors.New("empty response body")
	ErrGraphQL       = errors.New("GraphQL query failed")
)

const (
	MAX_RETRIES     = 3
	TIMEOUT_SECONDS = 30
)

// requester performs JSON requests with retries.
type requester struct {
	httpClient *http.Client
	headers    map[string]string
	maxRetries int
	backoff    time.Duration
	logger     zerolog.Logger
}

func newRequester(timeout time.Duration, log zerolog.Logger) requester {
	if timeout <= 0 {
		timeout = TIMEOUT_SECONDS * time.Second
	}
	return requester{
		httpClient: &http.Client{Timeout: timeout},
		headers:    map[string]string{},
		maxRetries: MAX_RETRIES,
		backoff:    time.Second,
		logger:     log,
	}
}

// statusError carries the status code so callers can decide whether to retry.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s %d: %s", ErrHTTPStatus.Error(), e.code, e.body)
}

func (e *statusError) Unwrap() error { return ErrHTTPStatus }

// transportError marks failures below HTTP: dial, TLS, reset connections and truncated bodies.
type transportError struct {
	err error
}

func (e *transportError) Error() string { return e.err.Error() }

func (e *transportError) Unwrap() error { return e.err }

// retryable reports whether another attempt can succeed. Only transport failures, 429 and 5xx qualify;
// a 200 with an empty or malformed body is returned at once.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	var te *transportError
	return errors.As(err, &te)
}

// getJSON issues a GET and decodes the body into out.
func (r requester) getJSON(ctx context.Context, url string, out any) error {
	return r.do(ctx, http.MethodGet, url, nil, out)
}

// postJSON issues a POST with a JSON payload and decodes the body into out.
func (r requester) postJSON(ctx context.Context, url string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}
	return r.do(ctx, http.MethodPost, url, body, out)
}

func (r requester) do(ctx context.Context, method, url string, body []byte, out any) error {
	var lastErr error
	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		r.logger.Debug().
			Str("method", method).
			Str("url", redact(url)).
			Int("attempt", attempt).
			Int("maxRetries", r.maxRetries).
			Msg("Making API request")

		lastErr = r.once(ctx, method, url, body, out)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) || attempt == r.maxRetries {
			break
		}

		r.logger.Warn().
			Err(lastErr).
			Str("url", redact(url)).
			Int("attempt", attempt).
			Msg("API request failed, will retry if attempts remain")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * r.backoff):
		}
	}
	return lastErr
}

func (r requester) once(ctx context.Context, method, url string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", &transportError{err: err})
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", &transportError{err: err})
	}
	if resp.StatusCode != http.StatusOK {
		return &statusError{code: resp.StatusCode, body: truncate(string(data), 200)}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return ErrEmptyResponse
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse JSON response: %w", err)
	}
	return nil
}

// redact hides the API key segment of The Graph gateway URLs.
func redact(url string) string {
	const marker = "/api/"
	i := strings.Index(url, marker)
	if i < 0 {
		return url
	}
	rest := url[i+len(marker):]
	j := strings.Index(rest, "/")
	if j <= 0 {
		return url
	}
	return url[:i+len(marker)] + "***" + rest[j:]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// FlexUint64 decodes subgraph integers that arrive either as JSON numbers or as strings.
type FlexUint64 uint64

func (f *FlexUint64) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid integer %s: %w", s, err)
	}
	*f = FlexUint64(v)
	return nil
}
