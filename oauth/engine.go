package oauth

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-shopify-auth/core"
	"github.com/goliatone/go-shopify-auth/security"
	"github.com/goliatone/go-shopify-auth/transport"
)

const authorizePath = "/admin/oauth/authorize"

type Option func(*Engine)

func WithCodeExchanger(exchanger transport.CodeExchanger) Option {
	return func(e *Engine) {
		if exchanger != nil {
			e.exchanger = exchanger
		}
	}
}

func WithSessionTokenExchanger(exchanger transport.SessionTokenExchanger) Option {
	return func(e *Engine) {
		if exchanger != nil {
			e.tokenExchanger = exchanger
		}
	}
}

func WithObserver(observer *core.Observer) Option {
	return func(e *Engine) {
		if observer != nil {
			e.observer = observer
		}
	}
}

func WithVerifier(verifier *security.Verifier) Option {
	return func(e *Engine) {
		if verifier != nil {
			e.verifier = verifier
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithSessionIDGenerator replaces the random id used for online sessions.
func WithSessionIDGenerator(next func() string) Option {
	return func(e *Engine) {
		if next != nil {
			e.newSessionID = next
		}
	}
}

// Engine runs the authorization code handshake and tracks the pending
// session in a signed cookie.
type Engine struct {
	cfg            core.Config
	store          core.SessionStore
	verifier       *security.Verifier
	exchanger      transport.CodeExchanger
	tokenExchanger transport.SessionTokenExchanger
	cookies        *CookieJar
	observer       *core.Observer
	now            func() time.Time
	newSessionID   func() string
}

func NewEngine(cfg core.Config, store core.SessionStore, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, core.NewConfigurationError("oauth: session store is required", nil)
	}
	cfg = cfg.WithDefaults()
	engine := &Engine{
		cfg:          cfg,
		store:        store,
		verifier:     security.NewVerifier(cfg),
		cookies:      NewCookieJar(cfg.CookieName(), cfg.APISecretKey),
		observer:     core.NewObserver(nil, nil),
		now:          time.Now,
		newSessionID: uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(engine)
		}
	}
	if engine.exchanger == nil {
		engine.exchanger = transport.NewAccessTokenClient(cfg, nil)
	}
	if engine.tokenExchanger == nil {
		engine.tokenExchanger = transport.NewSessionTokenExchangeClient(cfg, nil)
	}
	return engine, nil
}

func (e *Engine) Config() core.Config {
	return e.cfg
}

func (e *Engine) Verifier() *security.Verifier {
	return e.verifier
}

// BeginAuth stores a pending session, sets the OAuth cookie and returns the
// authorize URL. Online sessions get a random id; offline sessions use
// offlineSessionID, defaulting to the shop's offline id.
func (e *Engine) BeginAuth(
	ctx context.Context,
	w http.ResponseWriter,
	shop string,
	redirectPath string,
	isOnline bool,
	offlineSessionID string,
) (authURL string, err error) {
	startedAt := time.Now()
	defer func() {
		e.observer.Observe(ctx, startedAt, "begin_auth", err, map[string]any{
			"shop":      shop,
			"is_online": isOnline,
		})
	}()

	if err := e.ensureOAuthAllowed("oauth: cannot perform OAuth for private apps"); err != nil {
		return "", err
	}
	shop = strings.TrimSpace(shop)
	if shop == "" {
		return "", core.NewArgumentError("oauth: shop is required", nil)
	}

	state, err := core.GenerateNonce(ctx)
	if err != nil {
		return "", core.NewInternalError(err, "oauth: generate state")
	}

	sessionID := strings.TrimSpace(offlineSessionID)
	if isOnline {
		sessionID = e.newSessionID()
	} else if sessionID == "" {
		sessionID = GetOfflineSessionID(shop)
	}
	session := core.NewSession(sessionID)
	session.Shop = shop
	session.State = state
	session.IsOnline = isOnline

	if err := e.store.StoreSession(ctx, session); err != nil {
		return "", core.NewSessionStorageError(
			"oauth: OAuth session could not be saved, check the session store",
			err,
			map[string]any{"session_id": session.ID},
		)
	}
	if err := e.cookies.Set(w, session.ID, e.now().Add(e.cfg.BeginCookieTTL())); err != nil {
		return "", err
	}

	grantOptions := ""
	if isOnline {
		grantOptions = "per-user"
	}
	query := url.Values{}
	query.Set("client_id", e.cfg.APIKey)
	query.Set("scope", e.cfg.ScopeSet().String())
	query.Set("redirect_uri", "https://"+e.cfg.HostName+redirectPath)
	query.Set("state", state)
	query.Set("grant_options[]", grantOptions)

	return (&url.URL{
		Scheme:   "https",
		Host:     shop,
		Path:     authorizePath,
		RawQuery: query.Encode(),
	}).String(), nil
}

// ValidateAuthCallback completes the handshake started by BeginAuth and
// returns the finalized session.
func (e *Engine) ValidateAuthCallback(
	ctx context.Context,
	w http.ResponseWriter,
	r *http.Request,
	query core.AuthQuery,
) (session *core.Session, err error) {
	startedAt := time.Now()
	defer func() {
		fields := map[string]any{"shop": query.Shop}
		if session != nil {
			fields["is_online"] = session.IsOnline
		}
		e.observer.Observe(ctx, startedAt, "validate_auth_callback", err, fields)
	}()

	if err := e.ensureOAuthAllowed("oauth: cannot perform OAuth for private apps"); err != nil {
		return nil, err
	}

	sessionID := e.GetCookieSessionID(r)
	if sessionID == "" {
		return nil, core.NewCookieNotFoundError(
			"oauth: cannot complete OAuth process, could not find an OAuth cookie",
			map[string]any{"shop": query.Shop},
		)
	}

	current, err := e.store.LoadSession(ctx, sessionID)
	if err != nil {
		if core.IsSessionNotFound(err) {
			return nil, err
		}
		return nil, core.NewSessionStorageError("oauth: load OAuth session", err, map[string]any{"session_id": sessionID})
	}
	if current == nil {
		return nil, core.NewSessionNotFoundError(sessionID)
	}

	if err := e.verifier.ValidateCallback(query, current.State); err != nil {
		return nil, err
	}

	token, err := e.exchanger.ExchangeCode(ctx, current.Shop, query.Code)
	if err != nil {
		return nil, err
	}

	now := e.now()
	current.AccessToken = token.AccessToken
	current.Scope = token.Scope
	if current.IsOnline {
		info := token.OnlineAccessInfo
		if info == nil {
			info = &core.OnlineAccessInfo{}
		}
		current.OnlineAccessInfo = info
		current.SetExpires(now.Add(time.Duration(info.ExpiresIn) * time.Second))
	}

	var cookieExpires time.Time
	var jwtSessionID string
	switch {
	case !current.IsOnline:
		cookieExpires = now
	case e.cfg.IsEmbeddedApp:
		jwtSession := core.CloneSession(current, GetJwtSessionID(
			current.Shop,
			formatUserID(current.OnlineAccessInfo.AssociatedUser.ID),
		))
		if err := e.store.StoreSession(ctx, jwtSession); err != nil {
			return nil, core.NewSessionStorageError(
				"oauth: embedded session could not be saved, check the session store",
				err,
				map[string]any{"session_id": jwtSession.ID},
			)
		}
		jwtSessionID = jwtSession.ID
		cookieExpires = now.Add(e.cfg.EmbeddedGracePeriod())
		current.SetExpires(cookieExpires)
	default:
		cookieExpires = *current.Expires
	}

	if err := e.store.StoreSession(ctx, current); err != nil {
		metadata := map[string]any{"session_id": current.ID}
		if jwtSessionID != "" {
			// The embedded clone holds the new token; drop it with the failed session.
			if cleanupErr := e.store.DeleteSession(ctx, jwtSessionID); cleanupErr != nil {
				metadata["cleanup_error"] = cleanupErr.Error()
			}
		}
		return nil, core.NewSessionStorageError(
			"oauth: OAuth session could not be saved, check the session store",
			err,
			metadata,
		)
	}
	if err := e.cookies.Set(w, current.ID, cookieExpires); err != nil {
		return nil, err
	}
	return current, nil
}

// ExchangeSessionToken uses the token exchange grant to build and store a
// session straight from an embedded app session token.
func (e *Engine) ExchangeSessionToken(
	ctx context.Context,
	sessionToken string,
	isOnline bool,
) (session *core.Session, err error) {
	startedAt := time.Now()
	defer func() {
		fields := map[string]any{"is_online": isOnline}
		if session != nil {
			fields["shop"] = session.Shop
		}
		e.observer.Observe(ctx, startedAt, "exchange_session_token", err, fields)
	}()

	if err := e.ensureOAuthAllowed("oauth: cannot exchange tokens for private apps"); err != nil {
		return nil, err
	}
	claims, err := e.verifier.DecodeSessionToken(sessionToken)
	if err != nil {
		return nil, err
	}
	shop := claims.Shop()
	token, err := e.tokenExchanger.ExchangeSessionToken(ctx, shop, sessionToken, isOnline)
	if err != nil {
		return nil, err
	}

	id := GetOfflineSessionID(shop)
	if isOnline {
		id = GetJwtSessionID(shop, claims.Subject)
	}
	session = core.NewSession(id)
	session.Shop = shop
	session.State = "exchange"
	session.IsOnline = isOnline
	session.AccessToken = token.AccessToken
	session.Scope = token.Scope
	if isOnline && token.OnlineAccessInfo != nil {
		session.OnlineAccessInfo = token.OnlineAccessInfo
		session.SetExpires(e.now().Add(time.Duration(token.OnlineAccessInfo.ExpiresIn) * time.Second))
	}
	if err := e.store.StoreSession(ctx, session); err != nil {
		return nil, core.NewSessionStorageError("oauth: exchanged session could not be saved", err, map[string]any{"session_id": id})
	}
	return session, nil
}

func (e *Engine) ensureOAuthAllowed(privateAppMessage string) error {
	if err := e.cfg.EnsureInitialized(); err != nil {
		return err
	}
	return e.cfg.EnsureNotPrivateApp(privateAppMessage)
}
