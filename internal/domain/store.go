package domain

import (
	"context"
	"encoding/json"
	"io"
)

// LocalStore persists the single named collection of chat sessions,
// most recent first. Implementations live in internal/storage.
type LocalStore interface {
	Load(ctx context.Context) ([]*ChatSession, error)
	Save(ctx context.Context, sessions []*ChatSession) error
	Close() error
}

// RemoteSessions is the server-side session history, only reachable
// for authenticated users.
type RemoteSessions interface {
	ListSessions(ctx context.Context) ([]*ChatSession, error)
	DeleteSession(ctx context.Context, chatID string) error
}

// Analyzer is the remote scan and chat backend.
type Analyzer interface {
	Upload(ctx context.Context, fileName string, content io.Reader) (json.RawMessage, error)
	Chat(ctx context.Context, chatID, text string) (json.RawMessage, error)
}
