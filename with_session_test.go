package shopifyauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-shopify-auth/core"
	"github.com/goliatone/go-shopify-auth/oauth"
)

func TestWithSession_BuildsRequestedClient(t *testing.T) {
	app, store := newTestApp(t)
	storedSession(t, store, oauth.GetOfflineSessionID(testShop), nil)
	storedSession(t, store, oauth.GetJwtSessionID(testShop, "9"), func(s *core.Session) { s.IsOnline = true })

	offline, err := app.WithSession(context.Background(), WithSessionParams{ClientType: ClientTypeRest, Shop: testShop})
	require.NoError(t, err)
	require.NotNil(t, offline.Rest)
	require.Nil(t, offline.Graphql)
	require.Equal(t, "offline_"+testShop, offline.Session.ID)

	online, err := app.WithSession(context.Background(), WithSessionParams{
		ClientType: "GraphQL",
		IsOnline:   true,
		Request:    bearerRequest(t, "9"),
	})
	require.NoError(t, err)
	require.NotNil(t, online.Graphql)
	require.Equal(t, testShop+"_9", online.Session.ID)
}

func TestWithSession_Errors(t *testing.T) {
	app, store := newTestApp(t)
	storedSession(t, store, oauth.GetOfflineSessionID("empty.myshopify.com"), func(s *core.Session) {
		s.Shop = "empty.myshopify.com"
		s.AccessToken = ""
	})
	storedSession(t, store, oauth.GetOfflineSessionID(testShop), nil)

	cases := map[string]struct {
		params WithSessionParams
		code   string
	}{
		"online without request": {WithSessionParams{ClientType: ClientTypeRest, IsOnline: true}, core.ErrorMissingArgument},
		"offline without shop":   {WithSessionParams{ClientType: ClientTypeRest}, core.ErrorMissingArgument},
		"no session":             {WithSessionParams{ClientType: ClientTypeRest, IsOnline: true, Request: httptest.NewRequest(http.MethodGet, "/", nil)}, core.ErrorSessionNotFound},
		"no access token":        {WithSessionParams{ClientType: ClientTypeRest, Shop: "empty.myshopify.com"}, core.ErrorInvalidSession},
		"unknown client":         {WithSessionParams{ClientType: "soap", Shop: testShop}, core.ErrorUnsupportedClientType},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := app.WithSession(context.Background(), tc.params)
			require.True(t, core.HasTextCode(err, tc.code), "expected %s, got %v", tc.code, err)
		})
	}
}
