package command

import (
	"strings"

	"github.com/goliatone/go-shopify-auth/core"
	"github.com/goliatone/go-shopify-auth/webhooks"
)

const (
	TypeRegisterWebhook      = "shopify.command.webhook.register"
	TypeStoreSession         = "shopify.command.session.store"
	TypeDeleteSession        = "shopify.command.session.delete"
	TypeDeleteOfflineSession = "shopify.command.session.delete_offline"
)

type RegisterWebhookMessage struct {
	Options webhooks.RegisterOptions
}

func (RegisterWebhookMessage) Type() string { return TypeRegisterWebhook }

func (m RegisterWebhookMessage) Validate() error {
	if strings.TrimSpace(m.Options.Topic) == "" {
		return commandValidationError("topic", "topic is required")
	}
	if strings.TrimSpace(m.Options.Shop) == "" {
		return commandValidationError("shop", "shop is required")
	}
	if strings.TrimSpace(m.Options.AccessToken) == "" {
		return commandValidationError("access_token", "access token is required")
	}
	return nil
}

type StoreSessionMessage struct {
	Session *core.Session
}

func (StoreSessionMessage) Type() string { return TypeStoreSession }

func (m StoreSessionMessage) Validate() error {
	if m.Session == nil || strings.TrimSpace(m.Session.ID) == "" {
		return commandValidationError("session.id", "session id is required")
	}
	return nil
}

type DeleteSessionMessage struct {
	SessionID string
}

func (DeleteSessionMessage) Type() string { return TypeDeleteSession }

func (m DeleteSessionMessage) Validate() error {
	if strings.TrimSpace(m.SessionID) == "" {
		return commandValidationError("session_id", "session id is required")
	}
	return nil
}

type DeleteOfflineSessionMessage struct {
	Shop string
}

func (DeleteOfflineSessionMessage) Type() string { return TypeDeleteOfflineSession }

func (m DeleteOfflineSessionMessage) Validate() error {
	if strings.TrimSpace(m.Shop) == "" {
		return commandValidationError("shop", "shop is required")
	}
	return nil
}
