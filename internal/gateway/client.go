package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"merchant-console/internal/logger"
	"merchant-console/internal/metrics"
	"merchant-console/internal/session"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

const (
	DefaultBaseURL = "http://localhost:5000"
	DefaultTimeout = 30 * time.Second

	maxErrorBody = 1 << 20
)

// errServerFailure marks a 5xx answer for the breaker; the response itself is
// still handled like any other error status.
var errServerFailure = errors.New("backend server failure")

// Client talks to the dashboard backend. It never retries. After repeated
// transport failures or 5xx answers the breaker opens and calls fail fast as
// unreachable until the backend recovers.
type Client struct {
	baseURL        string
	http           *http.Client
	breaker        *gobreaker.CircuitBreaker[*http.Response]
	logger         zerolog.Logger
	now            func() time.Time
	onUnauthorized func(ctx context.Context)
}

func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		breaker: newBreaker(logger),
		logger:  logger,
		now:     time.Now,
	}
}

func newBreaker(logger zerolog.Logger) *gobreaker.CircuitBreaker[*http.Response] {
	metrics.SetBreakerState(breakerGauge(gobreaker.StateClosed))
	return gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "backend",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},
		// A caller giving up says nothing about the backend.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Backend circuit breaker state change")
			metrics.SetBreakerState(breakerGauge(to))
		},
	})
}

func breakerGauge(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	}
	return 0
}

// OnUnauthorized registers the hook run whenever the backend answers 401 to
// an authenticated call.
func (c *Client) OnUnauthorized(fn func(ctx context.Context)) {
	c.onUnauthorized = fn
}

func (c *Client) BaseURL() string { return c.baseURL }

type call struct {
	endpoint  string
	method    string
	path      string
	query     url.Values
	body      any
	anonymous bool
}

func (c *Client) newRequest(ctx context.Context, cl call) (*http.Request, error) {
	target := c.baseURL + cl.path
	if len(cl.query) > 0 {
		target += "?" + cl.query.Encode()
	}

	var body io.Reader
	if cl.body != nil {
		buf, err := json.Marshal(cl.body)
		if err != nil {
			return nil, fmt.Errorf("%s: encode body: %w", cl.endpoint, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, target, body)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", cl.endpoint, err)
	}
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if id := logger.RequestID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}
	if !cl.anonymous {
		ident, ok := session.IdentityFromContext(ctx)
		if !ok {
			return nil, fmt.Errorf("%s: %w", cl.endpoint, ErrUnauthorized)
		}
		req.Header.Set("Authorization", "Bearer "+ident.Token)
		req.Header.Set("x-auth-token", ident.Token)
	}
	return req, nil
}

// send performs the round trip and turns every non-2xx answer into an error.
// On success the caller owns resp.Body.
func (c *Client) send(ctx context.Context, cl call) (*http.Response, error) {
	req, err := c.newRequest(ctx, cl)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var resp *http.Response
	_, err = c.breaker.Execute(func() (*http.Response, error) {
		var err error
		resp, err = c.http.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, errServerFailure
		}
		return resp, nil
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		c.logger.Debug().Str("endpoint", cl.endpoint).Msg("Backend breaker open, call skipped")
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreachable, cl.endpoint, err)
	case err != nil && !errors.Is(err, errServerFailure):
		metrics.ObserveUpstream(cl.endpoint, 0, time.Since(start))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: %w", cl.endpoint, ctxErr)
		}
		c.logger.Warn().Err(err).Str("endpoint", cl.endpoint).Msg("Backend unreachable")
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreachable, cl.endpoint, err)
	}
	metrics.ObserveUpstream(cl.endpoint, resp.StatusCode, time.Since(start))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	apiErr := &APIError{Endpoint: cl.endpoint, Status: resp.StatusCode, anonymous: cl.anonymous}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr.Message = backendMessage(raw)

	c.logger.Debug().
		Str("endpoint", cl.endpoint).
		Int("status", resp.StatusCode).
		Str("message", apiErr.Message).
		Msg("Backend returned an error")

	if resp.StatusCode == http.StatusUnauthorized && !cl.anonymous {
		c.unauthorized(ctx)
	}
	return nil, apiErr
}

func (c *Client) do(ctx context.Context, cl call, out any) error {
	resp, err := c.send(ctx, cl)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%s: decode response: %w", cl.endpoint, err)
	}
	return nil
}

func (c *Client) unauthorized(ctx context.Context) {
	if c.onUnauthorized == nil {
		return
	}
	c.onUnauthorized(ctx)
}

// backendMessage extracts msg (or message) from a JSON error body.
func backendMessage(raw []byte) string {
	var body struct {
		Msg     string `json:"msg"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	if body.Msg != "" {
		return body.Msg
	}
	return body.Message
}

func escapedPath(format string, ids ...string) string {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = url.PathEscape(id)
	}
	return fmt.Sprintf(format, args...)
}
