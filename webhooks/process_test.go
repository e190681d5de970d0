package webhooks

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goliatone/go-shopify-auth/core"
	"github.com/goliatone/go-shopify-auth/security"
)

type recordedDelivery struct {
	topic string
	shop  string
	body  string
}

type recordingHandler struct {
	calls []recordedDelivery
	err   error
}

func (h *recordingHandler) HandleWebhook(_ context.Context, topic string, shop string, body []byte) error {
	h.calls = append(h.calls, recordedDelivery{topic: topic, shop: shop, body: string(body)})
	return h.err
}

func newDelivery(body string, headers map[string]string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhooks", strings.NewReader(body))
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	return req
}

func signedHeaders(body string, topic string) map[string]string {
	return map[string]string{
		HeaderHmac:       security.ComputeWebhookHmac([]byte(body), testConfig().APISecretKey),
		HeaderTopic:      topic,
		HeaderShopDomain: testShop,
	}
}

func TestProcess_DispatchesVerifiedDelivery(t *testing.T) {
	registry := newTestRegistry(&fakePlatform{})
	handler := &recordingHandler{}
	if err := registry.AddHandler("ORDERS_CREATE", "/webhooks", handler); err != nil {
		t.Fatalf("add handler: %v", err)
	}

	body := `{"id":1}`
	rec := httptest.NewRecorder()
	if err := registry.Process(rec, newDelivery(body, signedHeaders(body, "orders/create"))); err != nil {
		t.Fatalf("process: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(handler.calls) != 1 {
		t.Fatalf("expected one handler call, got %d", len(handler.calls))
	}
	call := handler.calls[0]
	if call.topic != "ORDERS_CREATE" || call.shop != testShop || call.body != body {
		t.Fatalf("unexpected handler call %#v", call)
	}
}

func TestProcess_RejectsBadSignature(t *testing.T) {
	registry := newTestRegistry(&fakePlatform{})
	handler := &recordingHandler{}
	_ = registry.AddHandler("ORDERS_CREATE", "/webhooks", handler)

	body := `{"id":1}`
	headers := signedHeaders(body, "orders/create")
	headers[HeaderHmac] = security.ComputeWebhookHmac([]byte(body), "wrong_secret")
	rec := httptest.NewRecorder()
	err := registry.Process(rec, newDelivery(body, headers))
	if !core.HasTextCode(err, core.ErrorInvalidSignature) {
		t.Fatalf("expected invalid signature error, got %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if len(handler.calls) != 0 {
		t.Fatalf("handler must not run for a bad signature")
	}
}

func TestProcess_EmptyBody(t *testing.T) {
	registry := newTestRegistry(&fakePlatform{})
	rec := httptest.NewRecorder()
	err := registry.Process(rec, newDelivery("", signedHeaders("", "orders/create")))
	if !core.HasTextCode(err, core.ErrorInvalidWebhook) {
		t.Fatalf("expected invalid webhook error, got %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestProcess_MissingHeadersAreListed(t *testing.T) {
	registry := newTestRegistry(&fakePlatform{})
	rec := httptest.NewRecorder()
	err := registry.Process(rec, newDelivery(`{"id":1}`, map[string]string{HeaderTopic: "orders/create"}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if err == nil || !strings.Contains(err.Error(), HeaderHmac) || !strings.Contains(err.Error(), HeaderShopDomain) {
		t.Fatalf("expected missing headers listed, got %v", err)
	}
	if strings.Contains(err.Error(), HeaderTopic+",") || strings.Contains(err.Error(), HeaderTopic+"]") {
		t.Fatalf("topic header was present, got %v", err)
	}
}

func TestProcess_UnknownTopic(t *testing.T) {
	registry := newTestRegistry(&fakePlatform{})
	body := `{"id":1}`
	rec := httptest.NewRecorder()
	err := registry.Process(rec, newDelivery(body, signedHeaders(body, "products/update")))
	if !core.HasTextCode(err, core.ErrorInvalidWebhook) {
		t.Fatalf("expected invalid webhook error, got %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestProcess_HandlerFailure(t *testing.T) {
	registry := newTestRegistry(&fakePlatform{})
	boom := errors.New("handler exploded")
	_ = registry.AddHandler("ORDERS_CREATE", "/webhooks", &recordingHandler{err: boom})

	body := `{"id":1}`
	rec := httptest.NewRecorder()
	err := registry.Process(rec, newDelivery(body, signedHeaders(body, "orders/create")))
	if !errors.Is(err, boom) {
		t.Fatalf("expected handler error, got %v", err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestProcess_DeliveryGuardSkipsRedelivery(t *testing.T) {
	guard := NewDeliveryGuard(DeliveryGuardOptions{})
	registry := newTestRegistry(&fakePlatform{}, WithDeliveryGuard(guard))
	handler := &recordingHandler{}
	_ = registry.AddHandler("ORDERS_CREATE", "/webhooks", handler)

	body := `{"id":1}`
	headers := signedHeaders(body, "orders/create")
	headers[HeaderWebhookID] = "b54557e4-bdd9-4b37-8a5f-bf7d70bcd043"
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		if err := registry.Process(rec, newDelivery(body, headers)); err != nil {
			t.Fatalf("process %d: %v", i, err)
		}
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	}
	if len(handler.calls) != 1 {
		t.Fatalf("expected redelivery to be skipped, got %d calls", len(handler.calls))
	}
}

func TestProcess_DeliveryGuardReleasesFailedDelivery(t *testing.T) {
	guard := NewDeliveryGuard(DeliveryGuardOptions{})
	registry := newTestRegistry(&fakePlatform{}, WithDeliveryGuard(guard))
	handler := &recordingHandler{err: errors.New("temporary")}
	_ = registry.AddHandler("ORDERS_CREATE", "/webhooks", handler)

	body := `{"id":1}`
	headers := signedHeaders(body, "orders/create")
	headers[HeaderWebhookID] = "delivery-1"
	_ = registry.Process(httptest.NewRecorder(), newDelivery(body, headers))
	handler.err = nil
	rec := httptest.NewRecorder()
	if err := registry.Process(rec, newDelivery(body, headers)); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(handler.calls) != 2 {
		t.Fatalf("expected retry to reach the handler, got %d calls", len(handler.calls))
	}
}

func TestServeHTTP_WritesStatus(t *testing.T) {
	registry := newTestRegistry(&fakePlatform{})
	_ = registry.AddHandler("ORDERS_CREATE", "/webhooks", &recordingHandler{})
	server := httptest.NewServer(registry)
	defer server.Close()

	body := `{"id":1}`
	req, _ := http.NewRequest(http.MethodPost, server.URL+"/webhooks", strings.NewReader(body))
	for key, value := range signedHeaders(body, "orders/create") {
		req.Header.Set(key, value)
	}
	res, err := server.Client().Do(req)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
}
