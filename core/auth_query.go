package core

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// AuthQuery is the query string of an OAuth callback.
type AuthQuery struct {
	Code      string `url:"code"`
	Hmac      string `url:"-"`
	Timestamp string `url:"timestamp"`
	State     string `url:"state"`
	Shop      string `url:"shop"`
	Host      string `url:"host,omitempty"`
}

func AuthQueryFromValues(values url.Values) AuthQuery {
	return AuthQuery{
		Code:      strings.TrimSpace(values.Get("code")),
		Hmac:      strings.TrimSpace(values.Get("hmac")),
		Timestamp: strings.TrimSpace(values.Get("timestamp")),
		State:     strings.TrimSpace(values.Get("state")),
		Shop:      strings.TrimSpace(values.Get("shop")),
		Host:      strings.TrimSpace(values.Get("host")),
	}
}

const nonceBytes = 24

// GenerateNonce returns a URL safe random value used as the OAuth state.
func GenerateNonce(_ context.Context) (string, error) {
	buf := make([]byte, nonceBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("core: generate nonce: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
