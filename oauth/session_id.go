package oauth

import (
	"net/http"
	"regexp"
	"strconv"

	"github.com/goliatone/go-shopify-auth/core"
)

var bearerPattern = regexp.MustCompile(`^Bearer (.+)$`)

func GetJwtSessionID(shop string, userID string) string {
	return shop + "_" + userID
}

func GetOfflineSessionID(shop string) string {
	return "offline_" + shop
}

func formatUserID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// GetCookieSessionID returns the session id from the signed cookie, or "".
func (e *Engine) GetCookieSessionID(r *http.Request) string {
	return e.cookies.Get(r)
}

// GetCurrentSessionID resolves the caller's session id. Embedded apps send a
// bearer session token; everything else, and embedded apps loading their
// first page after OAuth, fall back to the cookie. An empty id with a nil
// error means no session could be identified.
func (e *Engine) GetCurrentSessionID(r *http.Request, isOnline bool) (string, error) {
	if r == nil {
		return "", core.NewArgumentError("oauth: request is required", nil)
	}
	if e.cfg.IsEmbeddedApp {
		if header := r.Header.Get("Authorization"); header != "" {
			matches := bearerPattern.FindStringSubmatch(header)
			if matches == nil {
				return "", core.NewMissingTokenError("oauth: missing Bearer token in authorization header")
			}
			claims, err := e.verifier.DecodeSessionToken(matches[1])
			if err != nil {
				return "", err
			}
			if isOnline {
				return GetJwtSessionID(claims.Shop(), claims.Subject), nil
			}
			return GetOfflineSessionID(claims.Shop()), nil
		}
	}
	return e.GetCookieSessionID(r), nil
}
