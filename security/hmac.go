package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"

	"github.com/google/go-querystring/query"

	"github.com/goliatone/go-shopify-auth/core"
)

// CanonicalQuery encodes the signed callback fields sorted by key. The hmac
// field is never part of the message and host is only included when set.
// Spaces encode as %20 and !'()* stay literal, matching the platform signer.
func CanonicalQuery(q core.AuthQuery) (string, error) {
	values, err := query.Values(q)
	if err != nil {
		return "", core.NewInternalError(err, "security: encode callback query")
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		for _, value := range values[key] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(escapeQueryComponent(key))
			b.WriteByte('=')
			b.WriteString(escapeQueryComponent(value))
		}
	}
	return b.String(), nil
}

var queryComponentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

func escapeQueryComponent(value string) string {
	return queryComponentUnescaper.Replace(url.QueryEscape(value))
}

// GenerateLocalHmac returns the hex HMAC-SHA256 of the canonical query.
func GenerateLocalHmac(q core.AuthQuery, secret string) (string, error) {
	message, err := CanonicalQuery(q)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// ValidateHmac only errors when the query carries no hmac; a mismatch is
// reported as false.
func ValidateHmac(q core.AuthQuery, secret string) (bool, error) {
	supplied := strings.TrimSpace(q.Hmac)
	if supplied == "" {
		return false, core.NewInvalidHmacError("security: query does not contain an HMAC value")
	}
	local, err := GenerateLocalHmac(q, secret)
	if err != nil {
		return false, err
	}
	return SafeCompare(local, supplied), nil
}

// ComputeWebhookHmac returns the base64 HMAC-SHA256 of a raw webhook body.
func ComputeWebhookHmac(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func ValidateWebhookHmac(body []byte, signature string, secret string) bool {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return false
	}
	return SafeCompare(ComputeWebhookHmac(body, secret), signature)
}

// SafeCompare compares in constant time for equal length inputs.
func SafeCompare(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}
