package domain

import (
	"encoding/json"
	"time"
)

// ChatSession is one conversational thread anchored to at most one analyzed file.
type ChatSession struct {
	ChatID         string          `json:"chatId"`
	Title          string          `json:"title"`
	FileName       string          `json:"fileName,omitempty"`
	FileSize       int64           `json:"fileSize"`
	Messages       []Message       `json:"messages"`
	MessageCount   int             `json:"messageCount"`
	LastUpdated    time.Time       `json:"lastUpdated"`
	CreatedAt      time.Time       `json:"createdAt"`
	AnalysisResult json.RawMessage `json:"analysisResult,omitempty"`
}

// Append adds messages in call order and bumps LastUpdated.
// Loading placeholders are dropped, they only live in the in-flight thread.
func (s *ChatSession) Append(now time.Time, msgs ...Message) {
	for _, m := range msgs {
		if m.IsLoading {
			continue
		}
		s.Messages = append(s.Messages, m)
	}
	s.Touch(now)
}

// Touch recounts messages and moves LastUpdated forward.
func (s *ChatSession) Touch(now time.Time) {
	s.MessageCount = len(s.Messages)
	if now.Before(s.CreatedAt) {
		now = s.CreatedAt
	}
	s.LastUpdated = now
}

// Persistable returns a copy safe to write to storage: no loading messages,
// MessageCount consistent with Messages and LastUpdated not before CreatedAt.
func (s *ChatSession) Persistable() *ChatSession {
	out := *s
	out.Messages = make([]Message, 0, len(s.Messages))
	for _, m := range s.Messages {
		if !m.IsLoading {
			out.Messages = append(out.Messages, m)
		}
	}
	out.MessageCount = len(out.Messages)
	if out.LastUpdated.Before(out.CreatedAt) {
		out.LastUpdated = out.CreatedAt
	}
	return &out
}

// FirstUserText returns the text of the first user message, if any.
func (s *ChatSession) FirstUserText() string {
	for _, m := range s.Messages {
		if m.IsUser && m.Text != "" {
			return m.Text
		}
	}
	return ""
}
