// Package client is the Go SDK for the queue service's HTTP delivery
// boundary. Outbound requests carry the active propagation context from ctx
// as sentry-trace/baggage headers, the same way the browser producer attaches
// them.
package client

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"

	"github.com/serglom21/distributed-queue-instrumentation/internal/broker"
	"github.com/serglom21/distributed-queue-instrumentation/internal/logger"
	"github.com/serglom21/distributed-queue-instrumentation/internal/queue"
	"github.com/serglom21/distributed-queue-instrumentation/internal/tracectx"
)

const (
	defaultTimeout    = 5 * time.Second
	defaultRetryCount = 2
	retryWaitMin      = 250 * time.Millisecond
	retryWaitMax      = 2 * time.Second
)

// Client talks to the queue service over HTTP.
type Client struct {
	baseURL  string
	http     *resty.Client
	log      zerolog.Logger
	fallback *broker.Broker
}

// New creates a client for the queue service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	base := strings.TrimRight(baseURL, "/")

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = defaultRetryCount
	retryClient.RetryWaitMin = retryWaitMin
	retryClient.RetryWaitMax = retryWaitMax
	retryClient.Logger = nil

	httpClient := resty.New().
		SetBaseURL(base).
		SetTimeout(defaultTimeout).
		SetRetryCount(defaultRetryCount).
		SetRetryWaitTime(retryWaitMin).
		SetRetryMaxWaitTime(retryWaitMax).
		SetHeader("Content-Type", "application/json")
	httpClient.SetTransport(retryClient.HTTPClient.Transport)

	c := &Client{
		baseURL: base,
		http:    httpClient,
		log:     logger.WithComponent("queue-client"),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// request builds a resty request carrying the propagation context from ctx.
// A context-less call sends no trace headers and the boundary mints a fresh
// root.
func (c *Client) request(ctx context.Context) *resty.Request {
	req := c.http.R().SetContext(ctx)
	if tc, ok := tracectx.FromContext(ctx); ok {
		tracectx.InjectHTTP(tc, req.Header)
	}
	return req
}

// Send delivers one message to the named queue.
//
// When transport fails after retries and a fallback broker is configured,
// the message is enqueued in process instead, marked Degraded. Without a
// fallback the message is lost; the loss is logged at error level and the
// transport error returned, never swallowed.
func (c *Client) Send(ctx context.Context, queueName string, msg *queue.Message) (*SendResult, error) {
	var out sendResponse
	resp, err := c.request(ctx).
		SetBody(sendRequest{QueueName: queueName, Message: msg}).
		SetResult(&out).
		Post("/queue/send")
	if err != nil {
		if c.fallback != nil {
			c.log.Warn().
				Err(err).
				Str("queue", queueName).
				Msg("Transport failed, delivering through in-process fallback")

			stamped, ferr := c.fallback.Send(ctx, queueName, msg)
			if ferr != nil {
				return nil, wrapError(ferr, "send")
			}
			return &SendResult{MessageID: stamped.MessageID, Degraded: true}, nil
		}

		c.log.Error().
			Err(err).
			Str("queue", queueName).
			Msg("Message lost: transport failed and no fallback broker is configured")
		return nil, wrapError(err, "send")
	}
	if resp.IsError() {
		return nil, newStatusError("send", resp)
	}

	return &SendResult{MessageID: out.MessageID}, nil
}

// Receive pulls up to max buffered messages from the named queue. An empty
// queue returns an empty slice immediately; the boundary never blocks.
func (c *Client) Receive(ctx context.Context, queueName string, max int) ([]*queue.Message, error) {
	var out receiveResponse
	resp, err := c.request(ctx).
		SetBody(receiveRequest{QueueName: queueName, MaxMessages: max}).
		SetResult(&out).
		Post("/queue/receive")
	if err != nil {
		return nil, wrapError(err, "receive")
	}
	if resp.IsError() {
		return nil, newStatusError("receive", resp)
	}

	return out.Messages, nil
}

// Status fetches the boundary's redacted queue snapshot.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var out Status
	resp, err := c.request(ctx).
		SetResult(&out).
		Get("/queue/status")
	if err != nil {
		return nil, wrapError(err, "status")
	}
	if resp.IsError() {
		return nil, newStatusError("status", resp)
	}

	return &out, nil
}

// HealthCheck checks if the service is running
func (c *Client) HealthCheck(ctx context.Context) error {
	resp, err := c.request(ctx).Get("/health")
	if err != nil {
		return wrapError(err, "health check")
	}
	if resp.IsError() {
		return newStatusError("health check", resp)
	}
	return nil
}

// ReadinessCheck checks if the service is ready to serve requests. A 503 is
// a normal "not ready" answer, not an error.
func (c *Client) ReadinessCheck(ctx context.Context) (bool, error) {
	resp, err := c.request(ctx).Get("/ready")
	if err != nil {
		return false, wrapError(err, "readiness check")
	}
	return resp.StatusCode() == 200, nil
}
