package client

import (
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/serglom21/distributed-queue-instrumentation/internal/broker"
)

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.http.SetTimeout(timeout)
	}
}

// WithRetryCount sets how many times a failed request is retried.
func WithRetryCount(count int) Option {
	return func(c *Client) {
		c.http.SetRetryCount(count)
	}
}

// WithLogger replaces the client's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// WithFallback installs an in-process broker that absorbs sends when the
// queue service is unreachable. Without one, a transport failure loses the
// message.
func WithFallback(b *broker.Broker) Option {
	return func(c *Client) {
		c.fallback = b
	}
}

// WithHTTPClient swaps the underlying HTTP client, dropping the default
// retrying transport. Useful for tests and custom TLS setups.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = resty.NewWithClient(hc).
			SetBaseURL(c.baseURL).
			SetHeader("Content-Type", "application/json")
	}
}
