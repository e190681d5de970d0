package security

import (
	"net"
	"net/url"
	"regexp"
	"strings"
)

const defaultShopDomainSuffix = ".myshopify.com"

var shopDomainPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]*\.myshopify\.(com|io)[/]*$`)

// ValidateShop reports whether shop is a syntactically valid shop domain.
func ValidateShop(shop string) bool {
	return shopDomainPattern.MatchString(strings.TrimSpace(shop))
}

// SanitizeShop lowercases shop, drops scheme, port and trailing slashes, and
// appends the default suffix to bare shop names. It returns false when the
// result is not a valid shop domain.
func SanitizeShop(shop string) (string, bool) {
	trimmed := strings.TrimSpace(strings.ToLower(shop))
	if trimmed == "" {
		return "", false
	}
	if strings.Contains(trimmed, "://") {
		parsed, err := url.Parse(trimmed)
		if err != nil {
			return "", false
		}
		if strings.Trim(parsed.Path, "/") != "" {
			return "", false
		}
		trimmed = strings.TrimSpace(parsed.Host)
	}
	if host, _, err := net.SplitHostPort(trimmed); err == nil {
		trimmed = strings.TrimSpace(host)
	}
	trimmed = strings.TrimRight(trimmed, "/")
	if trimmed == "" || strings.Contains(trimmed, "/") {
		return "", false
	}
	if !strings.Contains(trimmed, ".") {
		trimmed += defaultShopDomainSuffix
	}
	if !ValidateShop(trimmed) {
		return "", false
	}
	return trimmed, true
}
