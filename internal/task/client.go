package task

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"

	"github.com/serglom21/distributed-queue-instrumentation/internal/logger"
	"github.com/serglom21/distributed-queue-instrumentation/internal/metrics"
	"github.com/serglom21/distributed-queue-instrumentation/internal/tracectx"
)

const (
	defaultTimeout    = 5 * time.Second
	defaultRetryCount = 2
	retryWaitMin      = 250 * time.Millisecond
	retryWaitMax      = 2 * time.Second
)

// Client submits tasks to a downstream boundary URL.
type Client struct {
	url     string
	http    *resty.Client
	log     zerolog.Logger
	metrics *metrics.TaskMetrics
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.http.SetTimeout(timeout)
	}
}

// WithRetryCount sets how many times a failed request is retried.
func WithRetryCount(count int) ClientOption {
	return func(c *Client) {
		c.http.SetRetryCount(count)
	}
}

// WithLogger replaces the client's logger.
func WithLogger(log zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.log = log
	}
}

// WithMetrics counts every submission by status.
func WithMetrics(m *metrics.TaskMetrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a client submitting to the given URL, typically
// "http://localhost:3003/task/submit".
func NewClient(url string, opts ...ClientOption) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = defaultRetryCount
	retryClient.RetryWaitMin = retryWaitMin
	retryClient.RetryWaitMax = retryWaitMax
	retryClient.Logger = nil

	httpClient := resty.New().
		SetTimeout(defaultTimeout).
		SetRetryCount(defaultRetryCount).
		SetRetryWaitTime(retryWaitMin).
		SetRetryMaxWaitTime(retryWaitMax).
		SetHeader("Content-Type", "application/json")
	httpClient.SetTransport(retryClient.HTTPClient.Transport)

	c := &Client{
		url:  url,
		http: httpClient,
		log:  logger.WithComponent("task.client"),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Submit posts the task, carrying the propagation context from ctx as
// sentry-trace/baggage headers so the boundary joins the same trace.
//
// A 2xx answer returns the boundary's response. The boundary's rejection
// status (403) becomes a *BlockedError; everything else that keeps the task
// from a business decision becomes a *SubmitError.
func (c *Client) Submit(ctx context.Context, t Task) (*SubmitResponse, error) {
	req := c.http.R().SetContext(ctx)
	if tc, ok := tracectx.FromContext(ctx); ok {
		tracectx.InjectHTTP(tc, req.Header)
	}

	var out SubmitResponse
	resp, err := req.
		SetBody(t).
		SetResult(&out).
		Post(c.url)
	if err != nil {
		c.metrics.RecordSubmission(metrics.StatusError)
		return nil, &SubmitError{Err: err}
	}

	if resp.StatusCode() == http.StatusForbidden {
		reason := "submission rejected"
		var denied SubmitResponse
		if jerr := json.Unmarshal(resp.Body(), &denied); jerr == nil && denied.Reason != "" {
			reason = denied.Reason
		}
		c.metrics.RecordSubmission(metrics.StatusBlocked)
		return nil, &BlockedError{Reason: reason}
	}
	if resp.IsError() {
		c.metrics.RecordSubmission(metrics.StatusError)
		return nil, &SubmitError{StatusCode: resp.StatusCode()}
	}

	c.metrics.RecordSubmission(metrics.StatusAccepted)
	return &out, nil
}
