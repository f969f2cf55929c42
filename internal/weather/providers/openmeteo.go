package providers

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/i474232898/weather-widget/internal/weather"
	"github.com/sony/gobreaker"
	"go.uber.org/atomic"
	"golang.org/x/time/rate"
)

// OpenMeteoClient implements weather.HTTPDoer for the open-meteo geocoding
// and forecast endpoints. Each stage has its own circuit breaker so a failing
// geocoder does not trip the forecast API.
type OpenMeteoClient struct {
	transport resilientTransport
	circuits  map[weather.Tag]*gobreaker.CircuitBreaker
	fallback  *gobreaker.CircuitBreaker
	logger    *slog.Logger

	requests atomic.Uint64
	failures atomic.Uint64
}

// ClientStats counts executed requests.
type ClientStats struct {
	Requests uint64 `json:"requests"`
	Failures uint64 `json:"failures"`
}

// NewOpenMeteoClient creates the executor. limiter may be nil.
func NewOpenMeteoClient(client *http.Client, limiter *rate.Limiter, logger *slog.Logger) *OpenMeteoClient {
	return NewOpenMeteoClientWithRetry(client, limiter, DefaultRetryPolicy, logger)
}

// NewOpenMeteoClientWithRetry is NewOpenMeteoClient with a custom retry policy.
func NewOpenMeteoClientWithRetry(client *http.Client, limiter *rate.Limiter, retry RetryPolicy, logger *slog.Logger) *OpenMeteoClient {
	return &OpenMeteoClient{
		transport: resilientTransport{
			client:  client,
			retry:   retry,
			limiter: limiter,
		},
		circuits: map[weather.Tag]*gobreaker.CircuitBreaker{
			weather.TagGeocode: newCircuit("openmeteo-geocode"),
			weather.TagWeather: newCircuit("openmeteo-forecast"),
		},
		fallback: newCircuit("openmeteo"),
		logger:   logger.With("component", "openmeteo-client"),
	}
}

func newCircuit(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
}

// Do performs req and reports the outcome, echoing its correlation.
func (c *OpenMeteoClient) Do(ctx context.Context, req weather.HTTPRequest) weather.HTTPResult {
	result := weather.HTTPResult{Tag: req.Tag, Attempt: req.Attempt}

	cb, ok := c.circuits[req.Tag]
	if !ok {
		cb = c.fallback
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	build := func(ctx context.Context) (*http.Request, error) {
		var body io.Reader
		if len(req.Body) > 0 {
			body = bytes.NewReader(req.Body)
		}
		httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
		if err != nil {
			return nil, err
		}
		for k, vs := range req.Header {
			for _, v := range vs {
				httpReq.Header.Add(k, v)
			}
		}
		return httpReq, nil
	}

	c.requests.Inc()
	start := time.Now()
	resp, err := c.transport.send(ctx, cb, build)
	if err != nil {
		c.failures.Inc()
		c.logger.Warn("request failed", "tag", req.Tag, "error", err)
		result.Err = err
		return result
	}
	if resp.status < 200 || resp.status > 299 {
		c.failures.Inc()
	}

	c.logger.Debug("request completed",
		"tag", req.Tag,
		"status", resp.status,
		"bytes", len(resp.body),
		"duration", time.Since(start),
	)

	result.Status = resp.status
	result.Header = resp.header
	result.Body = resp.body
	return result
}

// Stats returns request counters.
func (c *OpenMeteoClient) Stats() ClientStats {
	return ClientStats{
		Requests: c.requests.Load(),
		Failures: c.failures.Load(),
	}
}
