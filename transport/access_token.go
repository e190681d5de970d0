package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-shopify-auth/core"
)

const accessTokenPath = "/admin/oauth/access_token"

// AccessTokenResponse splits a token answer into the credential and, for
// online grants, the per-user remainder.
type AccessTokenResponse struct {
	AccessToken      string
	Scope            string
	OnlineAccessInfo *core.OnlineAccessInfo
}

// CodeExchanger trades an authorization code for an access token.
type CodeExchanger interface {
	ExchangeCode(ctx context.Context, shop string, code string) (*AccessTokenResponse, error)
}

type AccessTokenClient struct {
	cfg  core.Config
	doer HTTPDoer
	opts []ClientOption
}

func NewAccessTokenClient(cfg core.Config, doer HTTPDoer, opts ...ClientOption) *AccessTokenClient {
	return &AccessTokenClient{cfg: cfg, doer: doer, opts: opts}
}

func (c *AccessTokenClient) ExchangeCode(ctx context.Context, shop string, code string) (*AccessTokenResponse, error) {
	client, err := NewClient(shop, c.cfg, c.doer, c.opts...)
	if err != nil {
		return nil, err
	}
	res, err := client.Post(ctx, Request{
		Path: accessTokenPath,
		Type: DataTypeJSON,
		Data: map[string]string{
			"client_id":     c.cfg.APIKey,
			"client_secret": c.cfg.APISecretKey,
			"code":          code,
		},
	})
	if err != nil {
		return nil, err
	}
	return ParseAccessTokenResponse(res.Body)
}

// ParseAccessTokenResponse keeps every field other than access_token and
// scope as online access info.
func ParseAccessTokenResponse(body []byte) (*AccessTokenResponse, error) {
	payload := map[string]any{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, transportWrapError(err, goerrors.CategoryExternal, "transport: decode access token response", http.StatusBadGateway, nil)
	}
	out := &AccessTokenResponse{}
	out.AccessToken, _ = payload["access_token"].(string)
	out.Scope, _ = payload["scope"].(string)
	if strings.TrimSpace(out.AccessToken) == "" {
		return nil, transportError("transport: access token response is missing access_token", goerrors.CategoryExternal, http.StatusBadGateway, nil)
	}
	delete(payload, "access_token")
	delete(payload, "scope")
	if len(payload) == 0 {
		return out, nil
	}
	rest, err := json.Marshal(payload)
	if err != nil {
		return nil, transportWrapError(err, goerrors.CategoryInternal, "transport: encode online access info", http.StatusInternalServerError, nil)
	}
	info := &core.OnlineAccessInfo{}
	if err := json.Unmarshal(rest, info); err != nil {
		return nil, transportWrapError(err, goerrors.CategoryExternal, "transport: decode online access info", http.StatusBadGateway, nil)
	}
	out.OnlineAccessInfo = info
	return out, nil
}

var _ CodeExchanger = (*AccessTokenClient)(nil)
