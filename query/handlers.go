package query

import (
	"context"

	"github.com/goliatone/go-shopify-auth/core"
)

type SessionReader interface {
	LoadSession(ctx context.Context, id string) (*core.Session, error)
	LoadOfflineSession(ctx context.Context, shop string, includeExpired bool) (*core.Session, error)
}

// ShopSessionLister is implemented by stores that index sessions by shop.
type ShopSessionLister interface {
	FindSessionsByShop(ctx context.Context, shop string) ([]*core.Session, error)
}

type LoadSessionQuery struct {
	reader SessionReader
}

func NewLoadSessionQuery(reader SessionReader) *LoadSessionQuery {
	return &LoadSessionQuery{reader: reader}
}

func (q *LoadSessionQuery) Query(ctx context.Context, msg LoadSessionMessage) (*core.Session, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: session reader is required")
	}
	return q.reader.LoadSession(ctx, msg.SessionID)
}

type LoadOfflineSessionQuery struct {
	reader SessionReader
}

func NewLoadOfflineSessionQuery(reader SessionReader) *LoadOfflineSessionQuery {
	return &LoadOfflineSessionQuery{reader: reader}
}

// Query returns a nil session with a nil error when the shop has no usable
// offline session.
func (q *LoadOfflineSessionQuery) Query(ctx context.Context, msg LoadOfflineSessionMessage) (*core.Session, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: session reader is required")
	}
	return q.reader.LoadOfflineSession(ctx, msg.Shop, msg.IncludeExpired)
}

type ListShopSessionsQuery struct {
	lister ShopSessionLister
}

func NewListShopSessionsQuery(lister ShopSessionLister) *ListShopSessionsQuery {
	return &ListShopSessionsQuery{lister: lister}
}

func (q *ListShopSessionsQuery) Query(ctx context.Context, msg ListShopSessionsMessage) ([]*core.Session, error) {
	if q == nil || q.lister == nil {
		return nil, queryDependencyError("query: shop session lister is required")
	}
	return q.lister.FindSessionsByShop(ctx, msg.Shop)
}
