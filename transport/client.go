package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"runtime"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-shopify-auth/core"
)

const libraryName = "go-shopify-auth"

// DataType is the content type of a request body.
type DataType string

const (
	DataTypeJSON       DataType = "application/json"
	DataTypeGraphQL    DataType = "application/graphql"
	DataTypeURLEncoded DataType = "application/x-www-form-urlencoded"
)

type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Type    DataType
	Data    any
	Headers map[string]string
}

type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Decode unmarshals the JSON body into target.
func (r *Response) Decode(target any) error {
	if r == nil || len(bytes.TrimSpace(r.Body)) == 0 {
		return transportError("transport: response body is empty", goerrors.CategoryExternal, http.StatusBadGateway, nil)
	}
	if err := json.Unmarshal(r.Body, target); err != nil {
		return transportWrapError(err, goerrors.CategoryExternal, "transport: decode response body", http.StatusBadGateway, nil)
	}
	return nil
}

type ClientOption func(*Client)

// WithBaseURL points the client at another origin than https://{shop}.
func WithBaseURL(base string) ClientOption {
	return func(c *Client) {
		if trimmed := strings.TrimRight(strings.TrimSpace(base), "/"); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

func WithMaxResponseBodyBytes(limit int64) ClientOption {
	return func(c *Client) {
		if limit > 0 {
			c.maxResponseBodyBytes = limit
		}
	}
}

// Client sends requests to a single shop.
type Client struct {
	shop                 string
	baseURL              string
	cfg                  core.Config
	doer                 HTTPDoer
	maxResponseBodyBytes int64
}

func NewClient(shop string, cfg core.Config, doer HTTPDoer, opts ...ClientOption) (*Client, error) {
	shop = strings.TrimSpace(shop)
	if shop == "" {
		return nil, core.NewArgumentError("transport: shop is required", nil)
	}
	if doer == nil {
		doer = NewDefaultHTTPClient(cfg.HTTP, nil)
	}
	client := &Client{
		shop:                 shop,
		baseURL:              "https://" + shop,
		cfg:                  cfg,
		doer:                 doer,
		maxResponseBodyBytes: cfg.WithDefaults().HTTP.MaxResponseBodyBytes,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

func (c *Client) Shop() string {
	return c.shop
}

func (c *Client) Config() core.Config {
	return c.cfg
}

func (c *Client) Get(ctx context.Context, req Request) (*Response, error) {
	req.Method = http.MethodGet
	return c.Do(ctx, req)
}

func (c *Client) Post(ctx context.Context, req Request) (*Response, error) {
	req.Method = http.MethodPost
	return c.Do(ctx, req)
}

func (c *Client) Put(ctx context.Context, req Request) (*Response, error) {
	req.Method = http.MethodPut
	return c.Do(ctx, req)
}

func (c *Client) Delete(ctx context.Context, req Request) (*Response, error) {
	req.Method = http.MethodDelete
	return c.Do(ctx, req)
}

// Do sends req and returns the response. Non 2xx answers are returned as
// errors carrying the status code and body.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if c == nil || c.doer == nil {
		return nil, transportError(
			"transport: client requires an http doer",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			nil,
		)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := strings.TrimSpace(req.Path)
	if path == "" {
		return nil, core.NewArgumentError("transport: request path is required", nil)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	target := c.baseURL + path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	body, err := encodeBody(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
	if err != nil {
		return nil, transportWrapError(
			err,
			goerrors.CategoryBadInput,
			"transport: create http request",
			http.StatusBadRequest,
			map[string]any{"method": method, "url": target},
		)
	}
	if len(body) > 0 {
		contentType := req.Type
		if contentType == "" {
			contentType = DataTypeJSON
		}
		httpReq.Header.Set("Content-Type", string(contentType))
	}
	httpReq.Header.Set("Accept", string(DataTypeJSON))
	httpReq.Header.Set("User-Agent", c.userAgent())
	for key, value := range req.Headers {
		if strings.TrimSpace(key) == "" {
			continue
		}
		httpReq.Header.Set(strings.TrimSpace(key), value)
	}

	httpRes, err := c.doer.Do(httpReq)
	if err != nil {
		return nil, transportWrapError(
			err,
			goerrors.CategoryExternal,
			"transport: execute http request",
			http.StatusBadGateway,
			map[string]any{"method": method, "url": target},
		)
	}
	defer httpRes.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(httpRes.Body, c.maxResponseBodyBytes+1))
	if err != nil {
		return nil, transportWrapError(
			err,
			goerrors.CategoryExternal,
			"transport: read response body",
			http.StatusBadGateway,
			map[string]any{"status_code": httpRes.StatusCode},
		)
	}
	if int64(len(payload)) > c.maxResponseBodyBytes {
		return nil, transportError(
			fmt.Sprintf("transport: response body exceeds limit of %d bytes", c.maxResponseBodyBytes),
			goerrors.CategoryExternal,
			http.StatusBadGateway,
			map[string]any{"status_code": httpRes.StatusCode},
		)
	}

	res := &Response{StatusCode: httpRes.StatusCode, Headers: httpRes.Header.Clone(), Body: payload}
	if httpRes.StatusCode < http.StatusOK || httpRes.StatusCode >= http.StatusMultipleChoices {
		return res, responseError(res, map[string]any{"method": method, "path": path})
	}
	return res, nil
}

func (c *Client) userAgent() string {
	agent := fmt.Sprintf("%s | Go %s", libraryName, runtime.Version())
	if prefix := strings.TrimSpace(c.cfg.UserAgentPrefix); prefix != "" {
		agent = prefix + " | " + agent
	}
	return agent
}

func encodeBody(req Request) ([]byte, error) {
	if req.Data == nil {
		return nil, nil
	}
	switch req.Type {
	case DataTypeGraphQL:
		text, ok := req.Data.(string)
		if !ok {
			return nil, core.NewArgumentError("transport: graphql body must be a string", nil)
		}
		return []byte(text), nil
	case DataTypeURLEncoded:
		switch typed := req.Data.(type) {
		case url.Values:
			return []byte(typed.Encode()), nil
		case string:
			return []byte(typed), nil
		default:
			return nil, core.NewArgumentError("transport: form body must be url values", nil)
		}
	case DataTypeJSON, "":
		if raw, ok := req.Data.(json.RawMessage); ok {
			return raw, nil
		}
		if text, ok := req.Data.(string); ok {
			return []byte(text), nil
		}
		encoded, err := json.Marshal(req.Data)
		if err != nil {
			return nil, transportWrapError(err, goerrors.CategoryBadInput, "transport: encode json body", http.StatusBadRequest, nil)
		}
		return encoded, nil
	default:
		return nil, core.NewArgumentError("transport: unsupported data type", map[string]any{"type": string(req.Type)})
	}
}

// requestTimeout bounds a single call when the doer has no timeout of its own.
func requestTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
