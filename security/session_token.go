package security

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/goliatone/go-shopify-auth/core"
)

const (
	TokenReasonSignature   = "signature"
	TokenReasonExpired     = "expired"
	TokenReasonNotBefore   = "not_before"
	TokenReasonAudience    = "audience"
	TokenReasonDestination = "destination"
)

const defaultTokenLeeway = 5 * time.Second

// SessionTokenClaims is the payload of an embedded app session token.
type SessionTokenClaims struct {
	Dest      string `json:"dest"`
	SessionID string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// Shop returns the destination claim without its scheme.
func (c SessionTokenClaims) Shop() string {
	return strings.TrimPrefix(strings.TrimSpace(c.Dest), "https://")
}

type TokenOption func(*tokenOptions)

type tokenOptions struct {
	leeway time.Duration
	now    func() time.Time
}

func WithTokenLeeway(leeway time.Duration) TokenOption {
	return func(o *tokenOptions) {
		if leeway >= 0 {
			o.leeway = leeway
		}
	}
}

func WithTokenClock(now func() time.Time) TokenOption {
	return func(o *tokenOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// DecodeSessionToken verifies an HS256 session token with the API secret,
// then checks the audience against the API key and the destination against
// the shop domain syntax. Every failure carries the InvalidToken text code
// and a reason in its metadata.
func DecodeSessionToken(token string, cfg core.Config, opts ...TokenOption) (*SessionTokenClaims, error) {
	options := tokenOptions{leeway: defaultTokenLeeway, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	claims := &SessionTokenClaims{}
	_, err := jwt.ParseWithClaims(
		strings.TrimSpace(token),
		claims,
		func(*jwt.Token) (any, error) {
			return []byte(cfg.APISecretKey), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(options.leeway),
		jwt.WithTimeFunc(options.now),
	)
	if err != nil {
		return nil, core.NewInvalidTokenError(err, "security: failed to parse session token", tokenFailureReason(err))
	}

	if len(claims.Audience) != 1 || claims.Audience[0] != cfg.APIKey {
		return nil, core.NewInvalidTokenError(nil, "security: session token had invalid API key", TokenReasonAudience)
	}
	if !ValidateShop(claims.Shop()) {
		return nil, core.NewInvalidTokenError(nil, "security: session token had invalid shop", TokenReasonDestination)
	}
	return claims, nil
}

func tokenFailureReason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return TokenReasonExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return TokenReasonNotBefore
	default:
		return TokenReasonSignature
	}
}

// SignSessionToken issues an HS256 token, mainly for local tooling and tests
// that need tokens shaped like the ones the admin issues.
func SignSessionToken(claims SessionTokenClaims, secret string) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", core.NewInternalError(err, "security: sign session token")
	}
	return signed, nil
}
