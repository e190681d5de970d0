package security

import (
	"github.com/goliatone/go-shopify-auth/core"
)

// Verifier binds the integrity checks to one app's credentials.
type Verifier struct {
	cfg       core.Config
	tokenOpts []TokenOption
}

func NewVerifier(cfg core.Config, opts ...TokenOption) *Verifier {
	return &Verifier{cfg: cfg, tokenOpts: opts}
}

func (v *Verifier) GenerateLocalHmac(q core.AuthQuery) (string, error) {
	return GenerateLocalHmac(q, v.cfg.APISecretKey)
}

func (v *Verifier) ValidateHmac(q core.AuthQuery) (bool, error) {
	return ValidateHmac(q, v.cfg.APISecretKey)
}

func (v *Verifier) ValidateWebhookHmac(body []byte, signature string) bool {
	return ValidateWebhookHmac(body, signature, v.cfg.APISecretKey)
}

func (v *Verifier) DecodeSessionToken(token string) (*SessionTokenClaims, error) {
	return DecodeSessionToken(token, v.cfg, v.tokenOpts...)
}

// ValidateCallback runs the callback checks in order: hmac, shop syntax,
// then the stored state. All three failures share one error kind.
func (v *Verifier) ValidateCallback(q core.AuthQuery, expectedState string) error {
	ok, err := v.ValidateHmac(q)
	if err != nil {
		return core.NewInvalidCallbackError("security: invalid OAuth callback", map[string]any{"reason": "hmac_missing"})
	}
	if !ok {
		return core.NewInvalidCallbackError("security: invalid OAuth callback", map[string]any{"reason": "hmac"})
	}
	if !ValidateShop(q.Shop) {
		return core.NewInvalidCallbackError("security: invalid OAuth callback", map[string]any{"reason": "shop"})
	}
	if expectedState == "" || !SafeCompare(q.State, expectedState) {
		return core.NewInvalidCallbackError("security: invalid OAuth callback", map[string]any{"reason": "state"})
	}
	return nil
}
