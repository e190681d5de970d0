package shopifyauth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-shopify-auth/core"
	"github.com/goliatone/go-shopify-auth/oauth"
	"github.com/goliatone/go-shopify-auth/webhooks"
)

// LoadCurrentSession returns the caller's session, or nil when the request
// carries no session id or the id is unknown to the store.
func (a *App) LoadCurrentSession(ctx context.Context, r *http.Request, isOnline bool) (session *core.Session, err error) {
	startedAt := time.Now()
	defer func() {
		a.observer.Observe(ctx, startedAt, "load_current_session", err, map[string]any{"is_online": isOnline})
	}()

	if err := a.cfg.EnsureInitialized(); err != nil {
		return nil, err
	}
	id, err := a.Auth.GetCurrentSessionID(r, isOnline)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, nil
	}
	session, err = a.loadSession(ctx, id)
	if core.IsSessionNotFound(err) {
		return nil, nil
	}
	return session, err
}

// LoadOfflineSession returns the shop's offline session. A missing session,
// or an expired one unless includeExpired is set, yields nil.
func (a *App) LoadOfflineSession(ctx context.Context, shop string, includeExpired bool) (*core.Session, error) {
	if err := a.cfg.EnsureInitialized(); err != nil {
		return nil, err
	}
	shop = strings.TrimSpace(shop)
	if shop == "" {
		return nil, core.NewArgumentError("shopify: shop is required", nil)
	}
	session, err := a.loadSession(ctx, oauth.GetOfflineSessionID(shop))
	if err != nil {
		if core.IsSessionNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if !includeExpired && session.IsExpiredAt(time.Now()) {
		return nil, nil
	}
	return session, nil
}

func (a *App) LoadSession(ctx context.Context, id string) (*core.Session, error) {
	if err := a.cfg.EnsureInitialized(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(id) == "" {
		return nil, core.NewArgumentError("shopify: session id is required", nil)
	}
	return a.loadSession(ctx, id)
}

func (a *App) StoreSession(ctx context.Context, session *core.Session) (err error) {
	startedAt := time.Now()
	defer func() {
		fields := map[string]any{}
		if session != nil {
			fields["shop"] = session.Shop
			fields["is_online"] = session.IsOnline
		}
		a.observer.Observe(ctx, startedAt, "store_session", err, fields)
	}()

	if err := a.cfg.EnsureInitialized(); err != nil {
		return err
	}
	if session == nil || strings.TrimSpace(session.ID) == "" {
		return core.NewArgumentError("shopify: session id is required", nil)
	}
	if err := a.store.StoreSession(ctx, session); err != nil {
		return wrapStorageError(err, "shopify: session could not be stored", session.ID)
	}
	return nil
}

func (a *App) DeleteSession(ctx context.Context, id string) (err error) {
	startedAt := time.Now()
	defer func() {
		a.observer.Observe(ctx, startedAt, "delete_session", err, nil)
	}()

	if err := a.cfg.EnsureInitialized(); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return core.NewArgumentError("shopify: session id is required", nil)
	}
	if err := a.store.DeleteSession(ctx, id); err != nil {
		return wrapStorageError(err, "shopify: session could not be deleted", id)
	}
	return nil
}

// DeleteCurrentSession removes the caller's session. Unlike
// LoadCurrentSession a request without a session id is an error.
func (a *App) DeleteCurrentSession(ctx context.Context, r *http.Request, isOnline bool) error {
	if err := a.cfg.EnsureInitialized(); err != nil {
		return err
	}
	id, err := a.Auth.GetCurrentSessionID(r, isOnline)
	if err != nil {
		return err
	}
	if id == "" {
		return core.NewSessionNotFoundError("")
	}
	return a.DeleteSession(ctx, id)
}

func (a *App) DeleteOfflineSession(ctx context.Context, shop string) error {
	shop = strings.TrimSpace(shop)
	if shop == "" {
		return core.NewArgumentError("shopify: shop is required", nil)
	}
	return a.DeleteSession(ctx, oauth.GetOfflineSessionID(shop))
}

// RegisterWebhook reconciles a subscription with the platform through the
// app's webhook registry.
func (a *App) RegisterWebhook(ctx context.Context, opts webhooks.RegisterOptions) (webhooks.RegisterResult, error) {
	return a.Webhooks.Register(ctx, opts)
}

// FindSessionsByShop is served when the configured store indexes sessions by
// shop.
func (a *App) FindSessionsByShop(ctx context.Context, shop string) ([]*core.Session, error) {
	lister, ok := a.store.(interface {
		FindSessionsByShop(ctx context.Context, shop string) ([]*core.Session, error)
	})
	if !ok {
		return nil, core.NewConfigurationError("shopify: session store cannot list sessions by shop", nil)
	}
	return lister.FindSessionsByShop(ctx, shop)
}

func (a *App) loadSession(ctx context.Context, id string) (*core.Session, error) {
	session, err := a.store.LoadSession(ctx, id)
	if err != nil {
		if core.IsSessionNotFound(err) {
			return nil, err
		}
		return nil, wrapStorageError(err, "shopify: session could not be loaded", id)
	}
	return session, nil
}

func wrapStorageError(err error, message string, id string) error {
	if core.HasTextCode(err, core.ErrorSessionStorage) {
		return err
	}
	return core.NewSessionStorageError(message, err, map[string]any{"session_id": id})
}
