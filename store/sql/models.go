package sqlstore

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-shopify-auth/core"
)

// sessionNamespace derives stable row ids from session ids.
var sessionNamespace = uuid.MustParse("6f1d3a52-3c1e-5b7a-9a43-2d8c1f0e7b64")

type sessionRecord struct {
	bun.BaseModel `bun:"table:shopify_sessions,alias:ss"`

	ID                   string                 `bun:"id,pk"`
	SessionID            string                 `bun:"session_id,notnull"`
	Shop                 string                 `bun:"shop,notnull"`
	State                string                 `bun:"state,notnull"`
	Scope                string                 `bun:"scope,notnull"`
	IsOnline             bool                   `bun:"is_online,notnull"`
	ExpiresAt            *time.Time             `bun:"expires_at,nullzero"`
	EncryptedAccessToken []byte                 `bun:"encrypted_access_token"`
	EncryptionKeyID      string                 `bun:"encryption_key_id,notnull"`
	AssociatedUserID     *int64                 `bun:"associated_user_id"`
	OnlineAccessInfo     *core.OnlineAccessInfo `bun:"online_access_info,type:jsonb,nullzero"`
	CreatedAt            time.Time              `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt            time.Time              `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func sessionRecordID(sessionID string) string {
	return uuid.NewSHA1(sessionNamespace, []byte(sessionID)).String()
}

func newSessionRecord(session *core.Session, token []byte, keyID string, now time.Time) *sessionRecord {
	record := &sessionRecord{
		ID:                   sessionRecordID(session.ID),
		SessionID:            session.ID,
		Shop:                 session.Shop,
		State:                session.State,
		Scope:                session.Scope,
		IsOnline:             session.IsOnline,
		EncryptedAccessToken: token,
		EncryptionKeyID:      keyID,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if session.Expires != nil {
		value := session.Expires.UTC()
		record.ExpiresAt = &value
	}
	if session.OnlineAccessInfo != nil {
		record.OnlineAccessInfo = session.Clone().OnlineAccessInfo
		if userID := record.OnlineAccessInfo.AssociatedUser.ID; userID != 0 {
			record.AssociatedUserID = &userID
		}
	}
	return record
}

// toDomain leaves AccessToken empty; the store opens it separately.
func (r *sessionRecord) toDomain() *core.Session {
	session := core.NewSession(r.SessionID)
	session.Shop = r.Shop
	session.State = r.State
	session.Scope = r.Scope
	session.IsOnline = r.IsOnline
	if r.ExpiresAt != nil {
		session.SetExpires(*r.ExpiresAt)
	}
	session.OnlineAccessInfo = r.OnlineAccessInfo
	return session.Clone()
}
