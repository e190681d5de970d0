package query

import "strings"

const (
	TypeLoadSession        = "shopify.query.session.load"
	TypeLoadOfflineSession = "shopify.query.session.load_offline"
	TypeListShopSessions   = "shopify.query.session.list_shop"
)

type LoadSessionMessage struct {
	SessionID string
}

func (LoadSessionMessage) Type() string { return TypeLoadSession }

func (m LoadSessionMessage) Validate() error {
	if strings.TrimSpace(m.SessionID) == "" {
		return queryValidationError("session_id", "session id is required")
	}
	return nil
}

type LoadOfflineSessionMessage struct {
	Shop           string
	IncludeExpired bool
}

func (LoadOfflineSessionMessage) Type() string { return TypeLoadOfflineSession }

func (m LoadOfflineSessionMessage) Validate() error {
	if strings.TrimSpace(m.Shop) == "" {
		return queryValidationError("shop", "shop is required")
	}
	return nil
}

type ListShopSessionsMessage struct {
	Shop string
}

func (ListShopSessionsMessage) Type() string { return TypeListShopSessions }

func (m ListShopSessionsMessage) Validate() error {
	if strings.TrimSpace(m.Shop) == "" {
		return queryValidationError("shop", "shop is required")
	}
	return nil
}
