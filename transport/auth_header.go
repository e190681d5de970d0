package transport

import (
	"strings"

	"github.com/goliatone/go-shopify-auth/core"
)

const (
	HeaderAccessToken           = "X-Shopify-Access-Token"
	HeaderStorefrontAccessToken = "X-Shopify-Storefront-Access-Token"
)

// AuthHeaderBuilder picks the credential header for one API surface.
type AuthHeaderBuilder interface {
	BuildAuthHeader(cfg core.Config) (name string, value string, err error)
}

// AdminAccessToken authenticates Admin API calls. Private apps use the API
// secret in place of a session token.
type AdminAccessToken struct {
	Token string
}

func (a AdminAccessToken) BuildAuthHeader(cfg core.Config) (string, string, error) {
	if cfg.IsPrivateApp {
		return HeaderAccessToken, cfg.APISecretKey, nil
	}
	if strings.TrimSpace(a.Token) == "" {
		return "", "", core.NewArgumentError("transport: missing access token", nil)
	}
	return HeaderAccessToken, a.Token, nil
}

// StorefrontAccessToken authenticates Storefront API calls. Private apps use
// the configured storefront token when one is set.
type StorefrontAccessToken struct {
	Token string
}

func (s StorefrontAccessToken) BuildAuthHeader(cfg core.Config) (string, string, error) {
	token := s.Token
	if cfg.IsPrivateApp && strings.TrimSpace(cfg.PrivateAppStorefrontAccessToken) != "" {
		token = cfg.PrivateAppStorefrontAccessToken
	}
	if strings.TrimSpace(token) == "" {
		return "", "", core.NewArgumentError("transport: missing storefront access token", nil)
	}
	return HeaderStorefrontAccessToken, token, nil
}

var (
	_ AuthHeaderBuilder = AdminAccessToken{}
	_ AuthHeaderBuilder = StorefrontAccessToken{}
)
