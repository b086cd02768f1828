package chat

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fluentpal/tutor/backend/internal/model/chat"
)

// MemoryStore is the in-process Store used for local runs and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]chat.Session
	messages map[string][]chat.Message
	now      func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]chat.Session),
		messages: make(map[string][]chat.Message),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateSession provisions a session for owner.
func (s *MemoryStore) CreateSession(_ context.Context, owner, title string) (chat.Session, error) {
	if owner == "" {
		return chat.Session{}, ErrOwnerRequired
	}

	now := s.now()
	session := chat.Session{
		ID:        uuid.NewString(),
		UserID:    owner,
		Title:     title,
		Metadata:  map[string]string{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.messages[session.ID] = make([]chat.Message, 0, 16)
	s.mu.Unlock()

	return cloneSession(session), nil
}

// GetSession retrieves a session owned by owner.
func (s *MemoryStore) GetSession(_ context.Context, id, owner string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok || session.UserID != owner {
		return chat.Session{}, ErrSessionNotFound
	}
	return cloneSession(session), nil
}

// ListSessions returns owner's sessions, most recently updated first.
func (s *MemoryStore) ListSessions(_ context.Context, owner string) ([]chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]chat.Session, 0)
	for _, session := range s.sessions {
		if session.UserID == owner {
			out = append(out, cloneSession(session))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

// DeleteSession removes a session and its messages.
func (s *MemoryStore) DeleteSession(_ context.Context, id, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok || session.UserID != owner {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	delete(s.messages, id)
	return nil
}

// ListMessages returns the session's messages in append order.
func (s *MemoryStore) ListMessages(_ context.Context, sessionID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages, ok := s.messages[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	copied := make([]chat.Message, len(messages))
	copy(copied, messages)
	return copied, nil
}

// AppendMessage adds a message to the end of the session history.
func (s *MemoryStore) AppendMessage(_ context.Context, sessionID string, role chat.Role, content string) (chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return chat.Message{}, ErrSessionNotFound
	}

	msg := chat.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: s.now(),
	}
	s.messages[sessionID] = append(s.messages[sessionID], msg)

	session.UpdatedAt = msg.CreatedAt
	s.sessions[sessionID] = session
	return msg, nil
}

// UpdateSessionMetadata merges meta into the session metadata.
func (s *MemoryStore) UpdateSessionMetadata(_ context.Context, sessionID string, meta map[string]string) (chat.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}

	merged := make(map[string]string, len(session.Metadata)+len(meta))
	for k, v := range session.Metadata {
		merged[k] = v
	}
	for k, v := range meta {
		merged[k] = v
	}
	session.Metadata = merged
	session.UpdatedAt = s.now()
	s.sessions[sessionID] = session

	return cloneSession(session), nil
}

// CountUserMessages counts user-authored messages across all of owner's sessions.
func (s *MemoryStore) CountUserMessages(_ context.Context, owner string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for id, session := range s.sessions {
		if session.UserID != owner {
			continue
		}
		for _, msg := range s.messages[id] {
			if msg.Role == chat.RoleUser {
				count++
			}
		}
	}
	return count, nil
}

func cloneSession(session chat.Session) chat.Session {
	meta := make(map[string]string, len(session.Metadata))
	for k, v := range session.Metadata {
		meta[k] = v
	}
	session.Metadata = meta
	return session
}
