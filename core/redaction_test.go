package core

import (
	"context"
	"testing"
	"time"
)

func TestRedactFields_HidesCredentials(t *testing.T) {
	redacted := RedactFields(map[string]any{
		"session_id":    "offline_test.myshopify.com",
		"access_token":  "shpat_123",
		"Authorization": "Bearer abc",
		"nested":        map[string]any{"api_secret_key": "s", "shop": "test.myshopify.com"},
		"items":         []any{map[string]any{"hmac": "deadbeef"}},
	})

	if redacted["session_id"] != "offline_test.myshopify.com" {
		t.Fatalf("expected session id to stay visible, got %#v", redacted["session_id"])
	}
	if redacted["access_token"] != RedactedValue || redacted["Authorization"] != RedactedValue {
		t.Fatalf("expected credentials to be redacted, got %#v", redacted)
	}
	nested := redacted["nested"].(map[string]any)
	if nested["api_secret_key"] != RedactedValue || nested["shop"] != "test.myshopify.com" {
		t.Fatalf("unexpected nested map %#v", nested)
	}
	item := redacted["items"].([]any)[0].(map[string]any)
	if item["hmac"] != RedactedValue {
		t.Fatalf("expected hmac in slice to be redacted, got %#v", item)
	}
}

func TestObserver_RedactsLoggedFields(t *testing.T) {
	logger := newCaptureLogger()
	observer := NewObserver(logger, nil)

	observer.Observe(context.Background(), time.Now(), "store_session", nil, map[string]any{
		"session_id":   "offline_test.myshopify.com",
		"access_token": "shpat_123",
	})
	records := logger.snapshot()
	if len(records) != 1 {
		t.Fatalf("expected one log record, got %d", len(records))
	}
	if records[0].fields["access_token"] != RedactedValue {
		t.Fatalf("access token leaked into log fields: %#v", records[0].fields)
	}
	if records[0].fields["session_id"] != "offline_test.myshopify.com" {
		t.Fatalf("expected session id to be logged, got %#v", records[0].fields)
	}
}
