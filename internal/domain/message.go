package domain

import (
	"encoding/json"
	"time"
)

// Message is a single entry in a chat thread.
type Message struct {
	IsUser    bool   `json:"isUser"`
	Text      string `json:"text"`
	File      string `json:"file,omitempty"`
	IsLoading bool   `json:"isLoading,omitempty"`
	IsError   bool   `json:"isError,omitempty"`
	// Attachment holds the raw analysis result shown under a file reply.
	Attachment json.RawMessage `json:"attachment,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

func NewUserMessage(text, file string, now time.Time) Message {
	return Message{IsUser: true, Text: text, File: file, Timestamp: now}
}

func NewReply(text string, now time.Time) Message {
	return Message{Text: text, Timestamp: now}
}

// NewLoading returns the transient placeholder shown while a reply is pending.
func NewLoading(now time.Time) Message {
	return Message{IsLoading: true, Timestamp: now}
}

func NewErrorReply(text string, now time.Time) Message {
	return Message{Text: text, IsError: true, Timestamp: now}
}
