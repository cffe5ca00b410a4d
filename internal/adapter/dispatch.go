package adapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/nulpointcorp/agent-gateway/internal/metrics"
)

// Retry policy for upstream dispatch.
const (
	maxAttempts   = 5
	baseBackoff   = 500 * time.Millisecond
	maxRetryAfter = 60 * time.Second
)

// ErrRetriesExhausted is returned when every attempt timed out or failed at
// the transport level. The pipeline surfaces it as 408.
var ErrRetriesExhausted = errors.New("adapter: upstream retries exhausted")

var retriableStatus = map[int]bool{
	http.StatusRequestTimeout:      true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Dispatcher performs the outbound HTTPS call with the gateway retry policy:
// statuses {408, 429, 500, 502, 503, 504} and transport errors are retried up
// to maxAttempts with exponential backoff; a retry-after-ms or retry-after
// header overrides the backoff, capped at maxRetryAfter.
type Dispatcher struct {
	client  *http.Client
	backoff time.Duration
	metrics *metrics.Registry // nil-safe
}

// NewDispatcher creates a Dispatcher. timeout bounds one attempt end-to-end;
// zero means no per-attempt timeout (streaming responses need the connection
// to stay open past header receipt, so the timeout applies via ctx instead).
func NewDispatcher(timeout time.Duration, reg *metrics.Registry) *Dispatcher {
	return &Dispatcher{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        256,
				MaxIdleConnsPerHost: 64,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		backoff: baseBackoff,
		metrics: reg,
	}
}

// Do sends req and retries per the gateway policy. The caller owns the
// returned response body. Requests with a body must set req.GetBody (true
// for requests built via http.NewRequestWithContext from a bytes.Reader).
func (d *Dispatcher) Do(ctx context.Context, provider string, req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			if err := d.rewind(req); err != nil {
				return nil, err
			}
		}

		resp, err := d.client.Do(req.WithContext(ctx))
		if err != nil {
			lastErr = err
			d.observe(provider, req, "transport_error")
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if !d.waitFor(ctx, attempt, nil) {
				return nil, ctx.Err()
			}
			continue
		}

		if !retriableStatus[resp.StatusCode] {
			d.observe(provider, req, "ok")
			return resp, nil
		}

		d.observe(provider, req, "retriable_status")
		if d.metrics != nil {
			d.metrics.RecordRetry(provider, resp.StatusCode)
		}

		if attempt == maxAttempts-1 {
			// Budget spent: surface the provider's last word.
			return resp, nil
		}

		delay := retryAfter(resp)
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()

		slog.WarnContext(ctx, "upstream_retry",
			slog.String("provider", provider),
			slog.Int("status", resp.StatusCode),
			slog.Int("attempt", attempt+1),
		)

		if !d.waitFor(ctx, attempt, delay) {
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("%w: %v", ErrRetriesExhausted, lastErr)
}

func (d *Dispatcher) rewind(req *http.Request) error {
	if req.GetBody == nil {
		return nil
	}
	body, err := req.GetBody()
	if err != nil {
		return fmt.Errorf("adapter: rewind request body: %w", err)
	}
	req.Body = body
	return nil
}

func (d *Dispatcher) observe(provider string, req *http.Request, outcome string) {
	if d.metrics != nil {
		d.metrics.ObserveUpstreamAttempt(provider, req.URL.Path, outcome)
	}
}

func (d *Dispatcher) waitFor(ctx context.Context, attempt int, override *time.Duration) bool {
	delay := d.backoff << uint(attempt)
	if override != nil {
		delay = *override
	}
	if delay > maxRetryAfter {
		delay = maxRetryAfter
	}

	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// retryAfter extracts a provider-requested delay from retry-after-ms or
// retry-after. Returns nil when neither header parses.
func retryAfter(resp *http.Response) *time.Duration {
	if v := resp.Header.Get("retry-after-ms"); v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil && ms >= 0 {
			d := time.Duration(ms) * time.Millisecond
			return &d
		}
	}
	if v := resp.Header.Get("retry-after"); v != "" {
		if secs, err := strconv.ParseInt(v, 10, 64); err == nil && secs >= 0 {
			d := time.Duration(secs) * time.Second
			return &d
		}
		if at, err := http.ParseTime(v); err == nil {
			d := time.Until(at)
			if d < 0 {
				d = 0
			}
			return &d
		}
	}
	return nil
}

// NewOutboundRequest builds the outbound provider request with a rewindable
// JSON body so retries can resend it.
func NewOutboundRequest(ctx context.Context, method, url string, body []byte, headers map[string]string) (*http.Request, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("adapter: build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if len(body) > 0 && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}
