// Package storage implements domain.LocalStore on sqlite, redis and memory.
//
// Every backend stores one named collection of chat sessions, most recent
// first. Loading placeholders never reach the backend.
package storage

import (
	"encoding/json"
	"fmt"

	"github.com/joss/scanchat/internal/domain"
)

// DefaultCollection is the key the client uses for its session list.
const DefaultCollection = "chatSessions"

// encodeSession serializes one session after stripping transient state.
func encodeSession(s *domain.ChatSession) ([]byte, error) {
	data, err := json.Marshal(s.Persistable())
	if err != nil {
		return nil, fmt.Errorf("encode session %s: %w", s.ChatID, err)
	}
	return data, nil
}

func decodeSession(data []byte) (*domain.ChatSession, error) {
	var s domain.ChatSession
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return s.Persistable(), nil
}

// encodeCollection serializes the whole list as one JSON array.
func encodeCollection(sessions []*domain.ChatSession) ([]byte, error) {
	out := make([]*domain.ChatSession, 0, len(sessions))
	for _, s := range sessions {
		if s == nil {
			continue
		}
		out = append(out, s.Persistable())
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode sessions: %w", err)
	}
	return data, nil
}

func decodeCollection(data []byte) ([]*domain.ChatSession, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var sessions []*domain.ChatSession
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	out := make([]*domain.ChatSession, 0, len(sessions))
	for _, s := range sessions {
		if s != nil {
			out = append(out, s.Persistable())
		}
	}
	return out, nil
}
