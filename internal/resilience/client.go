// Package resilience wraps outbound HTTP calls to upstream travel APIs with
// retries, exponential backoff, and a circuit breaker.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned when the upstream's circuit breaker is open and
// no request was attempted.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// StatusError reports a retryable upstream HTTP status (429 or 5xx) that
// persisted through all retry attempts.
type StatusError struct {
	StatusCode int
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// ClientConfig holds configuration for a resilient HTTP client.
type ClientConfig struct {
	// Name identifies the upstream for breaker naming and logs.
	Name string

	// Timeout bounds each individual HTTP attempt. Default: 15 seconds
	Timeout time.Duration

	// MaxRetries is the number of retry attempts after the first try.
	// Default: 3
	MaxRetries uint64

	// InitialInterval is the first backoff delay. Default: 250ms
	InitialInterval time.Duration

	// MaxInterval caps the backoff delay, including delays requested by an
	// upstream Retry-After header. Default: 10 seconds
	MaxInterval time.Duration

	// Breaker tunes the circuit breaker. Zero value uses defaults.
	Breaker BreakerConfig

	// Transport overrides the underlying round tripper, mainly for tests.
	Transport http.RoundTripper
}

// responseEnvelope carries the attempt outcome through the breaker. The
// breaker generic parameter must not be *http.Response directly or bodyclose
// lints fire on every Execute call site.
type responseEnvelope struct {
	resp *http.Response
}

// Client retries transient upstream failures with exponential backoff and
// trips a circuit breaker on sustained ones. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*responseEnvelope]
	cfg        ClientConfig
}

// NewClient creates a resilient HTTP client for one named upstream.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 250 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 10 * time.Second
	}
	if cfg.Breaker.Name == "" {
		cfg.Breaker.Name = cfg.Name
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		},
		breaker: newBreaker(cfg.Breaker),
		cfg:     cfg,
	}
}

// Do executes the request, retrying network errors, 5xx responses, and 429
// responses with exponential backoff. A 429 Retry-After header is parsed onto
// the returned StatusError so callers can schedule around it. Requests with a
// body must set GetBody (http.NewRequest does this for common body types) so
// attempts can replay it.
//
// On success or a non-retryable status the response is returned with its body
// unread; the caller owns closing it. When retries are exhausted on a
// retryable status, the last response is still returned alongside a
// *StatusError.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.InitialInterval
	bo.MaxInterval = c.cfg.MaxInterval
	bo.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, c.cfg.MaxRetries), ctx)

	var lastResp *http.Response
	var lastStatus *StatusError

	attempt := func() error {
		env, err := c.breaker.Execute(func() (*responseEnvelope, error) {
			attemptReq, reqErr := cloneForAttempt(ctx, req)
			if reqErr != nil {
				return nil, backoff.Permanent(reqErr)
			}
			resp, doErr := c.httpClient.Do(attemptReq)
			if doErr != nil {
				return nil, doErr
			}
			if retryable(resp.StatusCode) {
				return &responseEnvelope{resp: resp}, &StatusError{
					StatusCode: resp.StatusCode,
					RetryAfter: retryAfter(resp),
				}
			}
			return &responseEnvelope{resp: resp}, nil
		})

		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				// The breaker opened; a status recorded by an earlier
				// attempt no longer describes the outcome.
				discard(lastResp)
				lastResp = nil
				lastStatus = nil
				return backoff.Permanent(ErrCircuitOpen)
			}
			var statusErr *StatusError
			if errors.As(err, &statusErr) {
				// Execute passes the envelope through on status errors;
				// keep the response so exhausted retries can return it.
				lastStatus = statusErr
				if env != nil && env.resp != nil {
					discard(lastResp)
					lastResp = env.resp
				}
				return err
			}
			return err
		}

		discard(lastResp)
		lastResp = env.resp
		lastStatus = nil
		return nil
	}

	err := backoff.Retry(attempt, policy)
	if err != nil {
		if lastStatus != nil && lastResp != nil {
			return lastResp, lastStatus
		}
		discard(lastResp)
		return nil, err
	}
	return lastResp, nil
}

// roundTripper adapts Client for use behind a plain *http.Client.
type roundTripper struct {
	client *Client
}

func (rt roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := rt.client.Do(req.Context(), req)
	if err != nil {
		// A RoundTripper must not return a response alongside an error.
		discard(resp)
		return nil, err
	}
	return resp, nil
}

// StandardClient exposes the resilient client as a plain *http.Client, for
// libraries that accept one (the OAuth2 token exchange).
func (c *Client) StandardClient() *http.Client {
	return &http.Client{Transport: roundTripper{client: c}}
}

// BreakerState reports the circuit breaker's current state, for the status
// endpoint.
func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}

// Name returns the configured upstream name.
func (c *Client) Name() string {
	return c.cfg.Name
}

func retryable(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || statusCode >= 500
}

// cloneForAttempt produces a fresh request for each retry, replaying the body
// through GetBody when one is present.
func cloneForAttempt(ctx context.Context, req *http.Request) (*http.Request, error) {
	clone := req.Clone(ctx)
	if req.Body == nil || req.GetBody == nil {
		return clone, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("replaying request body: %w", err)
	}
	clone.Body = body
	return clone, nil
}

// retryAfter parses a Retry-After header given in seconds. HTTP-date values
// are ignored; the backoff schedule covers those.
func retryAfter(resp *http.Response) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func discard(resp *http.Response) {
	if resp != nil {
		resp.Body.Close()
	}
}
