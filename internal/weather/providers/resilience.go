package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// maxBodyBytes caps how much of a response body is read into memory.
const maxBodyBytes = 4 << 20

// RetryPolicy controls how often and how patiently a stage is retried.
type RetryPolicy struct {
	Retries  int           // extra attempts after the first
	Base     time.Duration // delay before the first retry, doubled per retry
	MaxDelay time.Duration // upper bound on a single delay; 0 means none
}

// DefaultRetryPolicy is used by the open-meteo executor.
var DefaultRetryPolicy = RetryPolicy{
	Retries:  3,
	Base:     500 * time.Millisecond,
	MaxDelay: 5 * time.Second,
}

// Delay returns the wait before retry n (0-based).
func (p RetryPolicy) Delay(n int) time.Duration {
	d := p.Base << uint(n)
	if d <= 0 || (p.MaxDelay > 0 && d > p.MaxDelay) {
		return p.MaxDelay
	}
	return d
}

func (p RetryPolicy) validate() error {
	if p.Retries < 0 || p.Base <= 0 {
		return fmt.Errorf("invalid retry policy %+v", p)
	}
	return nil
}

var (
	errNoHTTPClient = errors.New("http client not configured")
	errBreakerOpen  = errors.New("circuit breaker open")
	errTransient    = errors.New("transient status")
)

// response is a fully read HTTP response.
type response struct {
	status int
	header http.Header
	body   []byte
}

// transientError carries a 429/5xx response through the circuit breaker so it
// counts as a failure there, while the response itself is kept for the caller.
type transientError struct {
	resp *response
}

func (e *transientError) Error() string {
	return fmt.Sprintf("%v: %d", errTransient, e.resp.status)
}

func (e *transientError) Unwrap() error {
	return errTransient
}

func transient(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// resilientTransport sends requests through a rate limiter, a circuit breaker
// and a retry loop.
type resilientTransport struct {
	client  *http.Client
	retry   RetryPolicy
	limiter *rate.Limiter // nil disables throttling
}

// send returns the final response, including a 429/5xx left over once the
// retries are spent. The error is reserved for requests that never produced
// a response.
func (t resilientTransport) send(
	ctx context.Context,
	cb *gobreaker.CircuitBreaker,
	build func(context.Context) (*http.Request, error),
) (*response, error) {
	if t.client == nil {
		return nil, errNoHTTPClient
	}
	if err := t.retry.validate(); err != nil {
		return nil, err
	}

	var lastErr error
	for n := 0; ; n++ {
		resp, err := t.once(ctx, cb, build)
		if err == nil {
			return resp, nil
		}
		if errors.Is(err, errBreakerOpen) || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err

		if n >= t.retry.Retries {
			break
		}
		if err := sleep(ctx, t.retry.Delay(n)); err != nil {
			return nil, err
		}
	}

	var te *transientError
	if errors.As(lastErr, &te) {
		return te.resp, nil
	}
	return nil, lastErr
}

// once performs a single throttled attempt inside the breaker.
func (t resilientTransport) once(
	ctx context.Context,
	cb *gobreaker.CircuitBreaker,
	build func(context.Context) (*http.Request, error),
) (*response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait canceled: %w", err)
		}
	}

	req, err := build(ctx)
	if err != nil {
		return nil, err
	}

	out, err := cb.Execute(func() (interface{}, error) {
		httpResp, err := t.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer httpResp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}
		resp := &response{status: httpResp.StatusCode, header: httpResp.Header, body: body}
		if transient(resp.status) {
			return nil, &transientError{resp: resp}
		}
		return resp, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %s", errBreakerOpen, cb.Name())
	}
	if err != nil {
		return nil, err
	}
	return out.(*response), nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
