// Package httpx builds the shared outbound *http.Client and circuit
// breaker wrapper used by every external collaborator client (Media
// Server, Metadata Provider, Downloader). Client construction follows the
// teacher's utils.NewHTTPClientWithOptions; the circuit breaker follows
// tomtom215-cartographus's internal/eventprocessor/resilient_reader.go
// use of sony/gobreaker/v2, satisfying the §7 "transient remote: retry
// with backoff, then degrade" policy at the transport layer.
package httpx

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

// Options configures one collaborator's client.
type Options struct {
	Timeout    time.Duration
	ProxyURL   string
	BreakerName string
}

// Client wraps *http.Client with a named circuit breaker and a small
// retry loop for idempotent GETs, per the §7 retry counts (3 tries for
// list-fetch, 1 try for mutations).
type Client struct {
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
}

// New builds an httpx.Client per Options.
func New(opts Options) (*Client, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	transport := &http.Transport{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: time.Second,
		ForceAttemptHTTP2:     true,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
	}

	if opts.ProxyURL != "" {
		proxyURL, err := url.Parse(opts.ProxyURL)
		if err != nil {
			return nil, err
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	name := opts.BreakerName
	if name == "" {
		name = "httpx"
	}

	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Client{
		http:    &http.Client{Timeout: timeout, Transport: transport},
		breaker: cb,
	}, nil
}

// Do executes req through the circuit breaker, making up to maxAttempts
// attempts in total with linear backoff between them on transport errors
// or 5xx responses. maxAttempts=1 means a single attempt (the §7 "1 try
// for mutations" case); values below 1 are treated as 1.
func (c *Client) Do(ctx context.Context, req *http.Request, maxAttempts int) (*http.Response, error) {
	attempts := maxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}

		resp, err := c.breaker.Execute(func() (*http.Response, error) {
			r := req.Clone(ctx)
			resp, err := c.http.Do(r)
			if err != nil {
				return nil, err
			}
			if resp.StatusCode >= 500 {
				resp.Body.Close()
				return nil, &remoteError{status: resp.StatusCode}
			}
			return resp, nil
		})
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

type remoteError struct{ status int }

func (e *remoteError) Error() string { return http.StatusText(e.status) }
