package webhooks

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-shopify-auth/core"
	"github.com/goliatone/go-shopify-auth/security"
)

const (
	HeaderHmac       = "X-Shopify-Hmac-Sha256"
	HeaderTopic      = "X-Shopify-Topic"
	HeaderShopDomain = "X-Shopify-Shop-Domain"
	HeaderWebhookID  = "X-Shopify-Webhook-Id"
	HeaderAPIVersion = "X-Shopify-API-Version"
)

// Process verifies and dispatches one delivery. The status is written to w
// before Process returns: 200 when the handler succeeded, 400 for an empty
// body or missing headers, 403 for a bad signature or an unknown topic and
// 500 when the handler failed.
func (r *Registry) Process(w http.ResponseWriter, req *http.Request) (err error) {
	startedAt := time.Now()
	ctx := context.Background()
	if req != nil {
		ctx = req.Context()
	}
	fields := map[string]any{}
	defer func() {
		r.observer.Observe(ctx, startedAt, "process_webhook", err, fields)
	}()

	if req == nil || req.Body == nil {
		w.WriteHeader(http.StatusBadRequest)
		return core.NewInvalidWebhookError("webhooks: no body was received when processing webhook", http.StatusBadRequest, nil)
	}
	body, err := readBody(w, req, r.maxBodyBytes)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return err
	}
	if len(body) == 0 {
		w.WriteHeader(http.StatusBadRequest)
		return core.NewInvalidWebhookError("webhooks: no body was received when processing webhook", http.StatusBadRequest, nil)
	}

	hmacHeader := strings.TrimSpace(req.Header.Get(HeaderHmac))
	topicHeader := strings.TrimSpace(req.Header.Get(HeaderTopic))
	shop := strings.TrimSpace(req.Header.Get(HeaderShopDomain))
	fields["shop"] = shop
	fields["topic"] = topicHeader

	missing := make([]string, 0, 3)
	if hmacHeader == "" {
		missing = append(missing, HeaderHmac)
	}
	if topicHeader == "" {
		missing = append(missing, HeaderTopic)
	}
	if shop == "" {
		missing = append(missing, HeaderShopDomain)
	}
	if len(missing) > 0 {
		w.WriteHeader(http.StatusBadRequest)
		return core.NewInvalidWebhookError(
			"webhooks: missing one or more of the required HTTP headers to process webhooks: ["+strings.Join(missing, ", ")+"]",
			http.StatusBadRequest,
			map[string]any{"missing_headers": missing},
		)
	}

	if !security.ValidateWebhookHmac(body, hmacHeader, r.cfg.APISecretKey) {
		w.WriteHeader(http.StatusForbidden)
		return core.NewInvalidSignatureError(
			"webhooks: could not validate request for topic "+topicHeader,
			map[string]any{"topic": topicHeader, "shop": shop},
		)
	}

	topic := NormalizeTopic(topicHeader)
	fields["topic"] = topic
	entry, ok := r.entries.Load(topic)
	if !ok {
		w.WriteHeader(http.StatusForbidden)
		return core.NewInvalidWebhookError(
			"webhooks: no webhook is registered for topic "+topicHeader,
			http.StatusForbidden,
			map[string]any{"topic": topic},
		)
	}

	webhookID := strings.TrimSpace(req.Header.Get(HeaderWebhookID))
	if r.guard != nil && webhookID != "" {
		fields["webhook_id"] = webhookID
		claimed, err := r.guard.Claim(ctx, webhookID)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return core.NewInternalError(err, "webhooks: claim delivery")
		}
		if !claimed {
			fields["deduped"] = true
			w.WriteHeader(http.StatusOK)
			return nil
		}
	}

	if err := entry.Handler.HandleWebhook(ctx, topic, shop, body); err != nil {
		if r.guard != nil && webhookID != "" {
			if releaseErr := r.guard.Release(ctx, webhookID); releaseErr != nil {
				r.observer.Warn(ctx, "webhook delivery release failed", map[string]any{
					"webhook_id": webhookID,
					"error":      releaseErr.Error(),
				})
			}
		}
		w.WriteHeader(http.StatusInternalServerError)
		return err
	}
	w.WriteHeader(http.StatusOK)
	return nil
}

// ServeHTTP adapts Process to http.Handler.
func (r *Registry) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	_ = r.Process(w, req)
}

func readBody(w http.ResponseWriter, req *http.Request, limit int64) ([]byte, error) {
	reader := io.Reader(req.Body)
	if limit > 0 {
		reader = http.MaxBytesReader(w, req.Body, limit)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if goerrors.As(err, &tooLarge) {
			return nil, core.NewInvalidWebhookError(
				"webhooks: request body is too large",
				http.StatusBadRequest,
				map[string]any{"limit": limit},
			)
		}
		return nil, core.NewInvalidWebhookError("webhooks: read request body", http.StatusBadRequest, map[string]any{"error": err.Error()})
	}
	return body, nil
}
