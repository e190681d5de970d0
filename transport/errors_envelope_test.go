package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-shopify-auth/core"
)

func testConfig() core.Config {
	cfg := core.DefaultConfig()
	cfg.APIKey = "test_key"
	cfg.APISecretKey = "test_secret_key"
	cfg.Scopes = []string{"read_products"}
	cfg.HostName = "app.example.com"
	cfg.APIVersion = core.APIVersionOctober21
	return cfg
}

func TestClient_ResponseLimitReturnsRichError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("12345"))
	}))
	defer server.Close()

	client, err := NewClient("test-shop.myshopify.io", testConfig(), server.Client(),
		WithBaseURL(server.URL),
		WithMaxResponseBodyBytes(4),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.Get(context.Background(), Request{Path: "/admin/shop.json"})
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryExternal {
		t.Fatalf("expected external category, got %q", rich.Category)
	}
	if rich.TextCode != core.ErrorHTTPRequest {
		t.Fatalf("expected %q text code, got %q", core.ErrorHTTPRequest, rich.TextCode)
	}
	if rich.Code != http.StatusBadGateway {
		t.Fatalf("expected %d code, got %d", http.StatusBadGateway, rich.Code)
	}
}

func TestClient_ErrorStatusReturnsResponseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "2.0")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"errors":"Exceeded 2 calls per second"}`))
	}))
	defer server.Close()

	client, err := NewClient("test-shop.myshopify.io", testConfig(), server.Client(), WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	res, err := client.Get(context.Background(), Request{Path: "/admin/shop.json"})
	if res == nil || res.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected response to be returned with the error")
	}
	if got := ResponseStatus(err); got != http.StatusTooManyRequests {
		t.Fatalf("expected status 429 on error, got %d", got)
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.Category != goerrors.CategoryRateLimit {
		t.Fatalf("expected rate limit category, got %v", err)
	}
	if rich.Metadata["retry_after"] != "2.0" {
		t.Fatalf("expected retry_after metadata, got %#v", rich.Metadata)
	}
}

func TestClient_TransportFailure(t *testing.T) {
	failing := DoerFunc(func(*http.Request) (*http.Response, error) {
		return nil, context.DeadlineExceeded
	})
	client, err := NewClient("test-shop.myshopify.io", testConfig(), failing)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = client.Post(context.Background(), Request{Path: "/admin/oauth/access_token", Data: map[string]string{"a": "b"}})
	if !core.HasTextCode(err, core.ErrorHTTPRequest) {
		t.Fatalf("expected http request error, got %v", err)
	}
	if _, err := NewClient(" ", testConfig(), failing); !core.HasTextCode(err, core.ErrorMissingArgument) {
		t.Fatalf("expected missing shop error, got %v", err)
	}
}
