package core

import (
	"context"
	"strings"
	"sync"
)

// SessionStore persists sessions by id. LoadSession reports a missing id with
// a SessionNotFound error; DeleteSession succeeds for unknown ids.
type SessionStore interface {
	StoreSession(ctx context.Context, session *Session) error
	LoadSession(ctx context.Context, id string) (*Session, error)
	DeleteSession(ctx context.Context, id string) error
}

type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: map[string]*Session{}}
}

func (s *MemorySessionStore) StoreSession(_ context.Context, session *Session) error {
	if s == nil {
		return NewSessionStorageError("core: memory session store is not configured", nil, nil)
	}
	if session == nil || strings.TrimSpace(session.ID) == "" {
		return NewArgumentError("core: session id is required", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session.Clone()
	return nil
}

func (s *MemorySessionStore) LoadSession(_ context.Context, id string) (*Session, error) {
	if s == nil {
		return nil, NewSessionStorageError("core: memory session store is not configured", nil, nil)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[strings.TrimSpace(id)]
	if !ok {
		return nil, NewSessionNotFoundError(id)
	}
	return session.Clone(), nil
}

func (s *MemorySessionStore) DeleteSession(_ context.Context, id string) error {
	if s == nil {
		return NewSessionStorageError("core: memory session store is not configured", nil, nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, strings.TrimSpace(id))
	return nil
}

func (s *MemorySessionStore) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

var _ SessionStore = (*MemorySessionStore)(nil)
