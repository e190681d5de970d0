package query

import (
	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-shopify-auth/core"
)

var (
	_ gocmd.Querier[LoadSessionMessage, *core.Session]        = (*LoadSessionQuery)(nil)
	_ gocmd.Querier[LoadOfflineSessionMessage, *core.Session] = (*LoadOfflineSessionQuery)(nil)
	_ gocmd.Querier[ListShopSessionsMessage, []*core.Session] = (*ListShopSessionsQuery)(nil)
)
