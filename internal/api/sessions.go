package api

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/joss/scanchat/internal/domain"
)

// sessionSummary accepts the field spellings the backend has used.
type sessionSummary struct {
	ChatID         string           `json:"chatId"`
	SessionID      string           `json:"sessionId"`
	ID             string           `json:"_id"`
	Title          string           `json:"title"`
	FileName       string           `json:"fileName"`
	FileSize       int64            `json:"fileSize"`
	MessageCount   int              `json:"messageCount"`
	Messages       []domain.Message `json:"messages"`
	LastUpdated    *time.Time       `json:"lastUpdated"`
	UpdatedAt      *time.Time       `json:"updatedAt"`
	CreatedAt      *time.Time       `json:"createdAt"`
	AnalysisResult json.RawMessage  `json:"analysisResult"`
}

func (s sessionSummary) toSession() *domain.ChatSession {
	out := &domain.ChatSession{
		ChatID:         firstNonEmpty(s.ChatID, s.SessionID, s.ID),
		Title:          s.Title,
		FileName:       s.FileName,
		FileSize:       s.FileSize,
		Messages:       s.Messages,
		MessageCount:   s.MessageCount,
		AnalysisResult: s.AnalysisResult,
	}
	if len(s.Messages) > 0 {
		out.MessageCount = len(s.Messages)
	}
	if s.CreatedAt != nil {
		out.CreatedAt = *s.CreatedAt
	}
	switch {
	case s.LastUpdated != nil:
		out.LastUpdated = *s.LastUpdated
	case s.UpdatedAt != nil:
		out.LastUpdated = *s.UpdatedAt
	default:
		out.LastUpdated = out.CreatedAt
	}
	return out
}

// decodeSummaries reads either a bare array or {"sessions": [...]}.
func decodeSummaries(body []byte) ([]*domain.ChatSession, error) {
	trimmed := bytes.TrimSpace(body)

	var list []sessionSummary
	if bytes.HasPrefix(trimmed, []byte("{")) {
		var wrapped struct {
			Sessions []sessionSummary `json:"sessions"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, &DecodeError{Op: "list sessions", Body: body, Err: err}
		}
		list = wrapped.Sessions
	} else if err := json.Unmarshal(trimmed, &list); err != nil {
		return nil, &DecodeError{Op: "list sessions", Body: body, Err: err}
	}

	out := make([]*domain.ChatSession, 0, len(list))
	for _, s := range list {
		sess := s.toSession()
		if sess.ChatID == "" {
			continue
		}
		out = append(out, sess)
	}
	return out, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
