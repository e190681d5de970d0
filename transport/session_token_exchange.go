package transport

import (
	"context"
	"net/url"
	"strings"

	"github.com/goliatone/go-shopify-auth/core"
)

const (
	tokenExchangeGrantType  = "urn:ietf:params:oauth:grant-type:token-exchange"
	subjectTokenTypeIDToken = "urn:ietf:params:oauth:token-type:id_token"
	requestedTypeOfflineURN = "urn:shopify:params:oauth:token-type:offline-access-token"
	requestedTypeOnlineURN  = "urn:shopify:params:oauth:token-type:online-access-token"
)

// SessionTokenExchanger trades an embedded session token for an access token
// without a redirect.
type SessionTokenExchanger interface {
	ExchangeSessionToken(ctx context.Context, shop string, sessionToken string, online bool) (*AccessTokenResponse, error)
}

type SessionTokenExchangeClient struct {
	cfg  core.Config
	doer HTTPDoer
	opts []ClientOption
}

func NewSessionTokenExchangeClient(cfg core.Config, doer HTTPDoer, opts ...ClientOption) *SessionTokenExchangeClient {
	return &SessionTokenExchangeClient{cfg: cfg, doer: doer, opts: opts}
}

func (c *SessionTokenExchangeClient) ExchangeSessionToken(
	ctx context.Context,
	shop string,
	sessionToken string,
	online bool,
) (*AccessTokenResponse, error) {
	sessionToken = strings.TrimSpace(sessionToken)
	if sessionToken == "" {
		return nil, core.NewArgumentError("transport: session token is required", nil)
	}
	client, err := NewClient(shop, c.cfg, c.doer, c.opts...)
	if err != nil {
		return nil, err
	}
	requested := requestedTypeOfflineURN
	if online {
		requested = requestedTypeOnlineURN
	}
	values := url.Values{}
	values.Set("grant_type", tokenExchangeGrantType)
	values.Set("subject_token", sessionToken)
	values.Set("subject_token_type", subjectTokenTypeIDToken)
	values.Set("requested_token_type", requested)
	values.Set("client_id", c.cfg.APIKey)
	values.Set("client_secret", c.cfg.APISecretKey)

	requestCtx, cancel := requestTimeout(ctx, c.cfg.HTTP.Timeout)
	defer cancel()
	res, err := client.Post(requestCtx, Request{
		Path: accessTokenPath,
		Type: DataTypeURLEncoded,
		Data: values,
	})
	if err != nil {
		return nil, err
	}
	return ParseAccessTokenResponse(res.Body)
}

var _ SessionTokenExchanger = (*SessionTokenExchangeClient)(nil)
