package sqlstore

import (
	"context"
	"database/sql"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-shopify-auth/core"
)

const plaintextKeyID = "plain"

type keyIdentifier interface {
	KeyID() string
}

type SessionStoreOption func(*SessionStore)

// WithSecretProvider seals access tokens before they are written.
func WithSecretProvider(provider core.SecretProvider) SessionStoreOption {
	return func(s *SessionStore) {
		s.secrets = provider
	}
}

func WithClock(now func() time.Time) SessionStoreOption {
	return func(s *SessionStore) {
		if now != nil {
			s.now = now
		}
	}
}

// SessionStore persists sessions in the shopify_sessions table.
type SessionStore struct {
	db      *bun.DB
	repo    repository.Repository[*sessionRecord]
	secrets core.SecretProvider
	now     func() time.Time
}

func NewSessionStore(db *bun.DB, opts ...SessionStoreOption) (*SessionStore, error) {
	if db == nil {
		return nil, core.NewConfigurationError("sqlstore: bun db is required", nil)
	}
	repo := repository.NewRepository[*sessionRecord](db, sessionHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, core.WrapError(err, "", "sqlstore: invalid session repository wiring", 500, core.ErrorConfiguration, nil)
		}
	}
	store := &SessionStore{
		db:   db,
		repo: repo,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

func (s *SessionStore) StoreSession(ctx context.Context, session *core.Session) error {
	if s == nil || s.db == nil || s.repo == nil {
		return core.NewSessionStorageError("sqlstore: session store is not configured", nil, nil)
	}
	if session == nil || strings.TrimSpace(session.ID) == "" {
		return core.NewArgumentError("sqlstore: session id is required", nil)
	}
	token, keyID, err := s.seal(ctx, session.AccessToken)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	record := newSessionRecord(session, token, keyID, now)

	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing, findErr := findSessionTx(ctx, tx, record.SessionID)
		if findErr != nil {
			return findErr
		}
		if existing == nil {
			_, createErr := s.repo.CreateTx(ctx, tx, record)
			return createErr
		}
		record.CreatedAt = existing.CreatedAt
		_, updateErr := tx.NewUpdate().
			Model(record).
			ExcludeColumn("created_at").
			Where("id = ?", existing.ID).
			Exec(ctx)
		return updateErr
	})
	if err != nil {
		return core.NewSessionStorageError("sqlstore: store session", err, map[string]any{"session_id": session.ID})
	}
	return nil
}

func (s *SessionStore) LoadSession(ctx context.Context, id string) (*core.Session, error) {
	if s == nil || s.db == nil {
		return nil, core.NewSessionStorageError("sqlstore: session store is not configured", nil, nil)
	}
	id = strings.TrimSpace(id)
	record := &sessionRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.session_id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, core.NewSessionNotFoundError(id)
		}
		return nil, core.NewSessionStorageError("sqlstore: load session", err, map[string]any{"session_id": id})
	}
	return s.open(ctx, record)
}

// DeleteSession succeeds for unknown ids.
func (s *SessionStore) DeleteSession(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return core.NewSessionStorageError("sqlstore: session store is not configured", nil, nil)
	}
	id = strings.TrimSpace(id)
	if _, err := s.db.NewDelete().
		Model((*sessionRecord)(nil)).
		Where("session_id = ?", id).
		Exec(ctx); err != nil {
		return core.NewSessionStorageError("sqlstore: delete session", err, map[string]any{"session_id": id})
	}
	return nil
}

// FindSessionsByShop lists every session stored for shop, newest first.
func (s *SessionStore) FindSessionsByShop(ctx context.Context, shop string) ([]*core.Session, error) {
	if s == nil || s.repo == nil {
		return nil, core.NewSessionStorageError("sqlstore: session store is not configured", nil, nil)
	}
	shop = strings.TrimSpace(shop)
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("shop", "=", shop),
		repository.OrderBy("updated_at DESC"),
	)
	if err != nil {
		return nil, core.NewSessionStorageError("sqlstore: list sessions", err, map[string]any{"shop": shop})
	}
	out := make([]*core.Session, 0, len(records))
	for _, record := range records {
		session, openErr := s.open(ctx, record)
		if openErr != nil {
			return nil, openErr
		}
		out = append(out, session)
	}
	return out, nil
}

// DeleteSessionsByShop removes every session of shop, as needed after an
// app uninstall.
func (s *SessionStore) DeleteSessionsByShop(ctx context.Context, shop string) (int64, error) {
	if s == nil || s.db == nil {
		return 0, core.NewSessionStorageError("sqlstore: session store is not configured", nil, nil)
	}
	shop = strings.TrimSpace(shop)
	res, err := s.db.NewDelete().
		Model((*sessionRecord)(nil)).
		Where("shop = ?", shop).
		Exec(ctx)
	if err != nil {
		return 0, core.NewSessionStorageError("sqlstore: delete shop sessions", err, map[string]any{"shop": shop})
	}
	affected, _ := res.RowsAffected()
	return affected, nil
}

// DeleteExpired removes sessions whose expiry is before cutoff.
func (s *SessionStore) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, core.NewSessionStorageError("sqlstore: session store is not configured", nil, nil)
	}
	res, err := s.db.NewDelete().
		Model((*sessionRecord)(nil)).
		Where("expires_at IS NOT NULL").
		Where("expires_at < ?", cutoff.UTC()).
		Exec(ctx)
	if err != nil {
		return 0, core.NewSessionStorageError("sqlstore: delete expired sessions", err, nil)
	}
	affected, _ := res.RowsAffected()
	return affected, nil
}

func (s *SessionStore) seal(ctx context.Context, token string) ([]byte, string, error) {
	if token == "" {
		return nil, plaintextKeyID, nil
	}
	if s.secrets == nil {
		return []byte(token), plaintextKeyID, nil
	}
	sealed, err := s.secrets.Encrypt(ctx, []byte(token))
	if err != nil {
		return nil, "", core.NewSessionStorageError("sqlstore: seal access token", err, nil)
	}
	keyID := "default"
	if identified, ok := s.secrets.(keyIdentifier); ok && strings.TrimSpace(identified.KeyID()) != "" {
		keyID = identified.KeyID()
	}
	return sealed, keyID, nil
}

func (s *SessionStore) open(ctx context.Context, record *sessionRecord) (*core.Session, error) {
	session := record.toDomain()
	if len(record.EncryptedAccessToken) == 0 {
		return session, nil
	}
	if record.EncryptionKeyID == plaintextKeyID {
		session.AccessToken = string(record.EncryptedAccessToken)
		return session, nil
	}
	if s.secrets == nil {
		return nil, core.NewSessionStorageError(
			"sqlstore: session token is sealed but no secret provider is configured",
			nil,
			map[string]any{"session_id": record.SessionID, "key_id": record.EncryptionKeyID},
		)
	}
	plaintext, err := s.secrets.Decrypt(ctx, record.EncryptedAccessToken)
	if err != nil {
		return nil, core.NewSessionStorageError(
			"sqlstore: open access token",
			err,
			map[string]any{"session_id": record.SessionID, "key_id": record.EncryptionKeyID},
		)
	}
	session.AccessToken = string(plaintext)
	return session, nil
}

func findSessionTx(ctx context.Context, tx bun.Tx, sessionID string) (*sessionRecord, error) {
	record := &sessionRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.session_id = ?", sessionID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}
