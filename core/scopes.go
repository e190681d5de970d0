package core

import (
	"encoding/json"
	"strings"
)

// ScopeSet is an immutable, order insensitive set of access scopes.
type ScopeSet struct {
	values []string
	index  map[string]struct{}
}

// NewScopeSet accepts individual scopes or comma separated lists.
func NewScopeSet(scopes ...string) ScopeSet {
	set := ScopeSet{index: map[string]struct{}{}}
	for _, raw := range scopes {
		for _, part := range strings.Split(raw, ",") {
			scope := strings.TrimSpace(part)
			if scope == "" {
				continue
			}
			if _, ok := set.index[scope]; ok {
				continue
			}
			set.index[scope] = struct{}{}
			set.values = append(set.values, scope)
		}
	}
	return set
}

func ParseScopeSet(raw string) ScopeSet {
	return NewScopeSet(raw)
}

func (s ScopeSet) Len() int {
	return len(s.values)
}

func (s ScopeSet) Values() []string {
	return append([]string(nil), s.values...)
}

func (s ScopeSet) Has(scopes ...string) bool {
	other := NewScopeSet(scopes...)
	for _, scope := range other.values {
		if _, ok := s.index[scope]; !ok {
			return false
		}
	}
	return true
}

func (s ScopeSet) Equals(other ScopeSet) bool {
	if s.Len() != other.Len() {
		return false
	}
	return s.Has(other.values...)
}

func (s ScopeSet) String() string {
	return strings.Join(s.values, ",")
}

func (s ScopeSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *ScopeSet) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = ParseScopeSet(raw)
	return nil
}
