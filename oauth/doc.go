// Package oauth implements the authorization code handshake for shops: the
// authorize redirect, callback validation, code exchange and the session
// cookie, plus resolving the current session id from a bearer session token
// or the cookie.
package oauth
