package chat

import (
	"context"
	"errors"

	"github.com/fluentpal/tutor/backend/internal/model/chat"
)

var (
	ErrOwnerRequired   = errors.New("session owner is required")
	ErrSessionNotFound = errors.New("session not found")
)

// Store persists sessions and their ordered messages. Lookups scoped by owner
// report ErrSessionNotFound for sessions owned by someone else.
type Store interface {
	CreateSession(ctx context.Context, owner, title string) (chat.Session, error)
	GetSession(ctx context.Context, id, owner string) (chat.Session, error)
	ListSessions(ctx context.Context, owner string) ([]chat.Session, error)
	DeleteSession(ctx context.Context, id, owner string) error
	ListMessages(ctx context.Context, sessionID string) ([]chat.Message, error)
	AppendMessage(ctx context.Context, sessionID string, role chat.Role, content string) (chat.Message, error)
	// UpdateSessionMetadata merges meta into the stored map and returns the result.
	UpdateSessionMetadata(ctx context.Context, sessionID string, meta map[string]string) (chat.Session, error)
	CountUserMessages(ctx context.Context, owner string) (int, error)
}
