package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-shopify-auth/core"
)

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// DoerFunc adapts a function to HTTPDoer.
type DoerFunc func(req *http.Request) (*http.Response, error)

func (f DoerFunc) Do(req *http.Request) (*http.Response, error) {
	return f(req)
}

// leveledLogger downgrades retry errors to warnings, the final failure is
// reported to the caller anyway.
type leveledLogger struct {
	inner core.Logger
}

func (l leveledLogger) Error(msg string, keysAndValues ...any) {
	l.inner.Warn(msg, keysAndValues...)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...any) {
	l.inner.Warn(msg, keysAndValues...)
}

func (l leveledLogger) Info(msg string, keysAndValues ...any) {
	l.inner.Debug(msg, keysAndValues...)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...any) {
	l.inner.Debug(msg, keysAndValues...)
}

// NewDefaultHTTPClient returns a pooled, traced client that retries
// connection errors and 5xx answers.
func NewDefaultHTTPClient(cfg core.HTTPConfig, logger core.Logger) *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient.Transport = otelhttp.NewTransport(cleanhttp.DefaultPooledTransport())
	retryClient.RetryMax = cfg.RetryMax
	if retryClient.RetryMax < 0 {
		retryClient.RetryMax = 0
	}
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.Logger = retryablehttp.LeveledLogger(leveledLogger{inner: glog.Ensure(logger)})
	retryClient.CheckRetry = DefaultRetryPolicy

	client := retryClient.StandardClient()
	client.Timeout = cfg.Timeout
	if client.Timeout <= 0 {
		client.Timeout = core.DefaultConfig().HTTP.Timeout
	}
	return client
}

// DefaultRetryPolicy leaves 429 answers to the caller, which sees the
// Retry-After header in the error metadata.
func DefaultRetryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if err == nil && resp.StatusCode == http.StatusTooManyRequests {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}
