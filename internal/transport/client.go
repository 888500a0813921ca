// Package transport provides the HTTP transport used to reach the oBIX
// gateway: a client with a bounded retry policy for transport-level failures,
// and a Monitor tracking consecutive failed cycles so a flaky or dead gateway
// does not flood the log.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const maxResponseBodySize = 1 << 20 // 1MB

// connection pooling limits; a single gateway is polled so the per-host
// numbers are what matter
const (
	defaultMaxIdleConns        = 10
	defaultMaxIdleConnsPerHost = 2
	defaultMaxConnsPerHost     = 2
	defaultIdleConnTimeout     = 60 * time.Second
	defaultRequestTimeout      = 30 * time.Second
)

// Response holds the outcome of one batch exchange with the gateway.
//
// A transport-level failure (after the retry budget is exhausted) is reported
// in Err with StatusCode zero. An HTTP-level reply, whatever its status, has
// Err nil; callers decide what a non-2xx status means.
type Response struct {
	// Body contains the reply body, limited to 1MB.
	Body []byte

	// StatusCode is the HTTP status code. Zero if no reply was received.
	StatusCode int

	// Status is the HTTP status line text (e.g. "404 Not Found").
	Status string

	// Latency is the total time spent, retries and retry delays included.
	Latency time.Duration

	// Err is the last transport error once the retry budget is exhausted.
	Err error
}

// OK reports whether a transport-level exchange completed, regardless of
// HTTP status.
func (r Response) OK() bool { return r.Err == nil }

// Client posts batch requests to the gateway, retrying transport failures a
// fixed number of times with a fixed delay between attempts.
//
// Retrying matters most right after boot, when the network configuration may
// still be settling (DHCP in progress). Only the first failed attempt of a
// sequence is logged; intermediate retries are silent and the caller is told
// about exhaustion through the returned Response.
type Client struct {
	httpClient *http.Client
	retries    int
	retryDelay time.Duration
	logger     *slog.Logger
}

// NewClient creates a gateway [Client] with the given retry budget and
// inter-retry delay. retries is the total number of attempts, not the number
// of retries after the first; a budget of 3 means at most 3 POSTs per Send.
func NewClient(retries int, retryDelay time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: defaultRequestTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				MaxConnsPerHost:     defaultMaxConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			},
		},
		retries:    retries,
		retryDelay: retryDelay,
		logger:     logger,
	}
}

// Send POSTs body to url, retrying transport failures up to the configured
// budget. It always returns a Response; transport errors are captured in the
// Err field rather than returned separately.
//
// The retry delay is context-aware: cancelling ctx during the delay aborts
// the remaining attempts.
func (c *Client) Send(ctx context.Context, url string, body []byte) Response {
	start := time.Now()

	var lastErr error
	for attempt := 0; attempt < c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				return Response{Latency: time.Since(start), Err: ctx.Err()}
			}
		}

		resp, err := c.post(ctx, url, body)
		if err != nil {
			if attempt == 0 {
				c.logger.Error("gateway communication error", "error", err)
			}
			lastErr = err
			continue
		}
		resp.Latency = time.Since(start)
		return resp
	}

	return Response{
		Latency: time.Since(start),
		Err:     fmt.Errorf("retry budget exhausted: %w", lastErr),
	}
}

// post performs a single POST attempt.
func (c *Client) post(ctx context.Context, url string, body []byte) (Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return Response{}, fmt.Errorf("failed to read reply body: %w", err)
	}

	return Response{
		Body:       data,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
	}, nil
}

// Close releases idle connections in the client's pool. The client remains
// usable afterwards.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	if t, ok := c.httpClient.Transport.(*http.Transport); ok {
		t.CloseIdleConnections()
	}
}
