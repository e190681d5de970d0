package sqlstore

import "github.com/goliatone/go-shopify-auth/core"

var (
	_ core.SessionStore = (*SessionStore)(nil)
	_ core.SessionStore = (*CachedSessionStore)(nil)
)
