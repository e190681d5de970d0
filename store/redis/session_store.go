// Package redisstore keeps sessions in Redis as JSON documents, with a per
// shop index set so all sessions of an uninstalled shop can be dropped.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-shopify-auth/core"
)

const defaultKeyPrefix = "shopify:session"

// Client is the subset of redis.Cmdable the store needs.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	SAdd(ctx context.Context, key string, members ...any) *redis.IntCmd
	SRem(ctx context.Context, key string, members ...any) *redis.IntCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
}

type Option func(*SessionStore)

func WithKeyPrefix(prefix string) Option {
	return func(s *SessionStore) {
		if trimmed := strings.Trim(strings.TrimSpace(prefix), ":"); trimmed != "" {
			s.prefix = trimmed
		}
	}
}

// WithKeyTTL expires session keys after ttl. Zero keeps them until deleted.
func WithKeyTTL(ttl time.Duration) Option {
	return func(s *SessionStore) {
		if ttl >= 0 {
			s.ttl = ttl
		}
	}
}

func WithSecretProvider(provider core.SecretProvider) Option {
	return func(s *SessionStore) {
		s.secrets = provider
	}
}

type SessionStore struct {
	client  Client
	prefix  string
	ttl     time.Duration
	secrets core.SecretProvider
}

type document struct {
	Session     *core.Session `json:"session"`
	SealedToken []byte        `json:"sealed_token,omitempty"`
}

func NewSessionStore(client Client, opts ...Option) (*SessionStore, error) {
	if client == nil {
		return nil, core.NewConfigurationError("redisstore: redis client is required", nil)
	}
	store := &SessionStore{client: client, prefix: defaultKeyPrefix}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

// NewSessionStoreFromURL parses a redis:// url and pings the server before
// returning the store.
func NewSessionStoreFromURL(ctx context.Context, redisURL string, opts ...Option) (*SessionStore, *redis.Client, error) {
	parsed, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, nil, core.NewConfigurationError("redisstore: invalid redis url", map[string]any{"error": err.Error()})
	}
	rdb := redis.NewClient(parsed)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, core.NewSessionStorageError("redisstore: ping redis", err, nil)
	}
	store, err := NewSessionStore(rdb, opts...)
	if err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}
	return store, rdb, nil
}

func (s *SessionStore) sessionKey(id string) string {
	return s.prefix + ":" + strings.TrimSpace(id)
}

func (s *SessionStore) shopKey(shop string) string {
	return s.prefix + ":shop:" + strings.ToLower(strings.TrimSpace(shop))
}

func (s *SessionStore) StoreSession(ctx context.Context, session *core.Session) error {
	if s == nil || s.client == nil {
		return core.NewSessionStorageError("redisstore: session store is not configured", nil, nil)
	}
	if session == nil || strings.TrimSpace(session.ID) == "" {
		return core.NewArgumentError("redisstore: session id is required", nil)
	}
	doc := document{Session: session.Clone()}
	if s.secrets != nil && doc.Session.AccessToken != "" {
		sealed, err := s.secrets.Encrypt(ctx, []byte(doc.Session.AccessToken))
		if err != nil {
			return core.NewSessionStorageError("redisstore: seal access token", err, map[string]any{"session_id": session.ID})
		}
		doc.SealedToken = sealed
		doc.Session.AccessToken = ""
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return core.NewSessionStorageError("redisstore: encode session", err, map[string]any{"session_id": session.ID})
	}
	if err := s.client.Set(ctx, s.sessionKey(session.ID), payload, s.ttl).Err(); err != nil {
		return core.NewSessionStorageError("redisstore: store session", err, map[string]any{"session_id": session.ID})
	}
	if shop := strings.TrimSpace(session.Shop); shop != "" {
		if err := s.client.SAdd(ctx, s.shopKey(shop), session.ID).Err(); err != nil {
			return core.NewSessionStorageError("redisstore: index session", err, map[string]any{"session_id": session.ID, "shop": shop})
		}
	}
	return nil
}

func (s *SessionStore) LoadSession(ctx context.Context, id string) (*core.Session, error) {
	if s == nil || s.client == nil {
		return nil, core.NewSessionStorageError("redisstore: session store is not configured", nil, nil)
	}
	payload, err := s.client.Get(ctx, s.sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, core.NewSessionNotFoundError(id)
	}
	if err != nil {
		return nil, core.NewSessionStorageError("redisstore: load session", err, map[string]any{"session_id": id})
	}
	return s.decode(ctx, id, payload)
}

// DeleteSession succeeds for unknown ids.
func (s *SessionStore) DeleteSession(ctx context.Context, id string) error {
	if s == nil || s.client == nil {
		return core.NewSessionStorageError("redisstore: session store is not configured", nil, nil)
	}
	existing, err := s.LoadSession(ctx, id)
	if err != nil && !core.IsSessionNotFound(err) {
		return err
	}
	if err := s.client.Del(ctx, s.sessionKey(id)).Err(); err != nil {
		return core.NewSessionStorageError("redisstore: delete session", err, map[string]any{"session_id": id})
	}
	if existing != nil && existing.Shop != "" {
		if err := s.client.SRem(ctx, s.shopKey(existing.Shop), existing.ID).Err(); err != nil {
			return core.NewSessionStorageError("redisstore: unindex session", err, map[string]any{"session_id": id})
		}
	}
	return nil
}

func (s *SessionStore) FindSessionsByShop(ctx context.Context, shop string) ([]*core.Session, error) {
	if s == nil || s.client == nil {
		return nil, core.NewSessionStorageError("redisstore: session store is not configured", nil, nil)
	}
	ids, err := s.client.SMembers(ctx, s.shopKey(shop)).Result()
	if err != nil {
		return nil, core.NewSessionStorageError("redisstore: list shop sessions", err, map[string]any{"shop": shop})
	}
	out := make([]*core.Session, 0, len(ids))
	for _, id := range ids {
		session, loadErr := s.LoadSession(ctx, id)
		if core.IsSessionNotFound(loadErr) {
			// expired by TTL; the index entry is stale
			_ = s.client.SRem(ctx, s.shopKey(shop), id).Err()
			continue
		}
		if loadErr != nil {
			return nil, loadErr
		}
		out = append(out, session)
	}
	return out, nil
}

func (s *SessionStore) DeleteSessionsByShop(ctx context.Context, shop string) (int64, error) {
	if s == nil || s.client == nil {
		return 0, core.NewSessionStorageError("redisstore: session store is not configured", nil, nil)
	}
	ids, err := s.client.SMembers(ctx, s.shopKey(shop)).Result()
	if err != nil {
		return 0, core.NewSessionStorageError("redisstore: list shop sessions", err, map[string]any{"shop": shop})
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, s.sessionKey(id))
	}
	var removed int64
	if len(ids) > 0 {
		removed, err = s.client.Del(ctx, keys...).Result()
		if err != nil {
			return 0, core.NewSessionStorageError("redisstore: delete shop sessions", err, map[string]any{"shop": shop})
		}
	}
	if err := s.client.Del(ctx, s.shopKey(shop)).Err(); err != nil {
		return removed, core.NewSessionStorageError("redisstore: drop shop index", err, map[string]any{"shop": shop})
	}
	return removed, nil
}

func (s *SessionStore) decode(ctx context.Context, id string, payload []byte) (*core.Session, error) {
	var doc document
	if err := json.Unmarshal(payload, &doc); err != nil || doc.Session == nil {
		if err == nil {
			err = errors.New("empty session document")
		}
		return nil, core.NewSessionStorageError("redisstore: decode session", err, map[string]any{"session_id": id})
	}
	if len(doc.SealedToken) == 0 {
		return doc.Session, nil
	}
	if s.secrets == nil {
		return nil, core.NewSessionStorageError(
			"redisstore: session token is sealed but no secret provider is configured",
			nil,
			map[string]any{"session_id": id},
		)
	}
	plaintext, err := s.secrets.Decrypt(ctx, doc.SealedToken)
	if err != nil {
		return nil, core.NewSessionStorageError("redisstore: open access token", err, map[string]any{"session_id": id})
	}
	doc.Session.AccessToken = string(plaintext)
	return doc.Session, nil
}

var (
	_ core.SessionStore = (*SessionStore)(nil)
	_ Client            = (*redis.Client)(nil)
)
