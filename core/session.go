package core

import (
	"encoding/json"
	"maps"
	"strings"
	"time"
)

type AssociatedUser struct {
	ID            int64  `json:"id"`
	FirstName     string `json:"first_name,omitempty"`
	LastName      string `json:"last_name,omitempty"`
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
	AccountOwner  bool   `json:"account_owner,omitempty"`
	Locale        string `json:"locale,omitempty"`
	Collaborator  bool   `json:"collaborator,omitempty"`
}

// OnlineAccessInfo holds the per-user part of an online token response.
// Response fields without a typed home are kept in Extra.
type OnlineAccessInfo struct {
	ExpiresIn           int64          `json:"expires_in"`
	AssociatedUserScope string         `json:"associated_user_scope"`
	AssociatedUser      AssociatedUser `json:"associated_user"`
	Extra               map[string]any `json:"-"`
}

var onlineAccessInfoKeys = []string{"expires_in", "associated_user_scope", "associated_user"}

func (i OnlineAccessInfo) MarshalJSON() ([]byte, error) {
	type plain OnlineAccessInfo
	base, err := json.Marshal(plain(i))
	if err != nil || len(i.Extra) == 0 {
		return base, err
	}
	merged := map[string]any{}
	for key, value := range i.Extra {
		merged[key] = value
	}
	typed := map[string]any{}
	if err := json.Unmarshal(base, &typed); err != nil {
		return nil, err
	}
	maps.Copy(merged, typed)
	return json.Marshal(merged)
}

func (i *OnlineAccessInfo) UnmarshalJSON(data []byte) error {
	type plain OnlineAccessInfo
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	raw := map[string]any{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, key := range onlineAccessInfoKeys {
		delete(raw, key)
	}
	decoded.Extra = nil
	if len(raw) > 0 {
		decoded.Extra = raw
	}
	*i = OnlineAccessInfo(decoded)
	return nil
}

func (i *OnlineAccessInfo) clone() *OnlineAccessInfo {
	if i == nil {
		return nil
	}
	out := *i
	if i.Extra != nil {
		out.Extra = deepCopyMap(i.Extra)
	}
	return &out
}

// Session is the persisted credential record of one shop or shop user.
type Session struct {
	ID               string            `json:"id"`
	Shop             string            `json:"shop"`
	State            string            `json:"state"`
	Scope            string            `json:"scope,omitempty"`
	Expires          *time.Time        `json:"expires,omitempty"`
	IsOnline         bool              `json:"isOnline"`
	AccessToken      string            `json:"accessToken,omitempty"`
	OnlineAccessInfo *OnlineAccessInfo `json:"onlineAccessInfo,omitempty"`
}

func NewSession(id string) *Session {
	return &Session{ID: strings.TrimSpace(id)}
}

// CloneSession builds a new session with id that preserves every other field
// of src. Nothing mutable is shared with src.
func CloneSession(src *Session, id string) *Session {
	out := NewSession(id)
	if src == nil {
		return out
	}
	out.Shop = src.Shop
	out.State = src.State
	out.Scope = src.Scope
	out.IsOnline = src.IsOnline
	out.AccessToken = src.AccessToken
	out.Expires = cloneTime(src.Expires)
	out.OnlineAccessInfo = src.OnlineAccessInfo.clone()
	return out
}

func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	return CloneSession(s, s.ID)
}

func (s *Session) IsActive(configured ScopeSet) bool {
	return s.IsActiveAt(configured, time.Now())
}

func (s *Session) IsActiveAt(configured ScopeSet, now time.Time) bool {
	if s == nil {
		return false
	}
	if !configured.Equals(ParseScopeSet(s.Scope)) {
		return false
	}
	if strings.TrimSpace(s.AccessToken) == "" {
		return false
	}
	return s.Expires == nil || !s.Expires.Before(now)
}

func (s *Session) IsExpiredAt(now time.Time) bool {
	return s != nil && s.Expires != nil && s.Expires.Before(now)
}

func (s *Session) SetExpires(at time.Time) {
	value := at.UTC()
	s.Expires = &value
}

func cloneTime(in *time.Time) *time.Time {
	if in == nil {
		return nil
	}
	value := *in
	return &value
}

func deepCopyMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = deepCopyValue(value)
	}
	return out
}

func deepCopyValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return deepCopyMap(typed)
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		return value
	}
}
