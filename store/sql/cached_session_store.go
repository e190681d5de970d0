package sqlstore

import (
	"context"
	"net/url"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/goliatone/go-shopify-auth/core"
)

const sessionCacheKeyPrefix = "go-shopify-auth::session::v1"

// CachedSessionStore serves LoadSession from a read-through cache and
// invalidates the cached entry on every write or delete.
type CachedSessionStore struct {
	base  core.SessionStore
	cache repositorycache.CacheService
}

func NewCachedSessionStore(base core.SessionStore, cacheService repositorycache.CacheService) (*CachedSessionStore, error) {
	if base == nil {
		return nil, core.NewConfigurationError("sqlstore: base session store is required", nil)
	}
	if cacheService == nil {
		return nil, core.NewConfigurationError("sqlstore: session cache service is required", nil)
	}
	return &CachedSessionStore{base: base, cache: cacheService}, nil
}

// SessionCacheKey returns go-shopify-auth::session::v1::<escaped id>.
func SessionCacheKey(id string) string {
	return sessionCacheKeyPrefix + "::" + url.PathEscape(strings.TrimSpace(id))
}

func (s *CachedSessionStore) LoadSession(ctx context.Context, id string) (*core.Session, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return nil, core.NewSessionStorageError("sqlstore: cached session store is not configured", nil, nil)
	}
	id = strings.TrimSpace(id)
	session, err := repositorycache.GetOrFetch(ctx, s.cache, SessionCacheKey(id), func(ctx context.Context) (*core.Session, error) {
		return s.base.LoadSession(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return session.Clone(), nil
}

func (s *CachedSessionStore) StoreSession(ctx context.Context, session *core.Session) error {
	if s == nil || s.base == nil || s.cache == nil {
		return core.NewSessionStorageError("sqlstore: cached session store is not configured", nil, nil)
	}
	if err := s.base.StoreSession(ctx, session); err != nil {
		return err
	}
	return s.invalidate(ctx, session.ID)
}

func (s *CachedSessionStore) DeleteSession(ctx context.Context, id string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return core.NewSessionStorageError("sqlstore: cached session store is not configured", nil, nil)
	}
	if err := s.base.DeleteSession(ctx, id); err != nil {
		return err
	}
	return s.invalidate(ctx, id)
}

func (s *CachedSessionStore) invalidate(ctx context.Context, id string) error {
	if err := s.cache.Delete(ctx, SessionCacheKey(id)); err != nil {
		return core.NewSessionStorageError("sqlstore: invalidate cached session", err, map[string]any{"session_id": id})
	}
	return nil
}
