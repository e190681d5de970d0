package shopifyauth

import (
	"context"
	"net/http"
	"strings"

	"github.com/goliatone/go-shopify-auth/core"
	"github.com/goliatone/go-shopify-auth/transport"
)

type ClientType string

const (
	ClientTypeRest    ClientType = "rest"
	ClientTypeGraphql ClientType = "graphql"
)

// WithSessionParams selects the session to load. Online lookups read the
// caller from Request, offline lookups use Shop.
type WithSessionParams struct {
	ClientType ClientType
	IsOnline   bool
	Request    *http.Request
	Shop       string
}

// WithSessionResult carries the loaded session and the one client that
// matches the requested ClientType.
type WithSessionResult struct {
	Session *core.Session
	Rest    *transport.RestClient
	Graphql *transport.GraphqlClient
}

func (a *App) WithSession(ctx context.Context, params WithSessionParams) (*WithSessionResult, error) {
	if err := a.cfg.EnsureInitialized(); err != nil {
		return nil, err
	}

	var (
		session *core.Session
		err     error
	)
	if params.IsOnline {
		if params.Request == nil {
			return nil, core.NewArgumentError("shopify: the request is required for online sessions", nil)
		}
		session, err = a.LoadCurrentSession(ctx, params.Request, true)
	} else {
		if strings.TrimSpace(params.Shop) == "" {
			return nil, core.NewArgumentError("shopify: shop is required for offline sessions", nil)
		}
		session, err = a.LoadOfflineSession(ctx, params.Shop, false)
	}
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, core.NewSessionNotFoundError("")
	}
	if session.AccessToken == "" {
		return nil, core.NewInvalidSessionError(
			"shopify: requested session does not contain an access token",
			map[string]any{"session_id": session.ID},
		)
	}

	result := &WithSessionResult{Session: session}
	switch ClientType(strings.ToLower(strings.TrimSpace(string(params.ClientType)))) {
	case ClientTypeRest:
		result.Rest, err = transport.NewRestClient(session.Shop, a.cfg, session.AccessToken, a.doer)
	case ClientTypeGraphql:
		result.Graphql, err = transport.NewGraphqlClient(session.Shop, a.cfg, session.AccessToken, a.doer)
	default:
		return nil, core.NewUnsupportedClientTypeError(
			"shopify: unsupported client type, use rest or graphql",
			map[string]any{"client_type": string(params.ClientType)},
		)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}
