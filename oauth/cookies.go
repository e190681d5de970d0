package oauth

import (
	"net/http"
	"time"

	"github.com/gorilla/securecookie"

	"github.com/goliatone/go-shopify-auth/core"
)

// CookieJar signs the session id cookie with the API secret.
type CookieJar struct {
	name  string
	codec *securecookie.SecureCookie
}

func NewCookieJar(name string, secret string) *CookieJar {
	codec := securecookie.New([]byte(secret), nil)
	codec.SetSerializer(securecookie.JSONEncoder{})
	return &CookieJar{name: name, codec: codec}
}

func (j *CookieJar) Name() string {
	return j.name
}

// Set writes a signed, secure, lax cookie holding sessionID.
func (j *CookieJar) Set(w http.ResponseWriter, sessionID string, expires time.Time) error {
	encoded, err := j.codec.Encode(j.name, sessionID)
	if err != nil {
		return core.NewInternalError(err, "oauth: sign session cookie")
	}
	http.SetCookie(w, &http.Cookie{
		Name:     j.name,
		Value:    encoded,
		Path:     "/",
		Expires:  expires.UTC(),
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Get returns the verified session id, or "" when the cookie is missing or
// its signature does not verify.
func (j *CookieJar) Get(r *http.Request) string {
	if r == nil {
		return ""
	}
	cookie, err := r.Cookie(j.name)
	if err != nil {
		return ""
	}
	var sessionID string
	if err := j.codec.Decode(j.name, cookie.Value, &sessionID); err != nil {
		return ""
	}
	return sessionID
}
