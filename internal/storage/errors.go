package storage

import (
	"errors"
	"fmt"
)

// Common storage errors.
var (
	// ErrNotFound indicates the requested session does not exist.
	ErrNotFound = errors.New("session not found")

	// ErrCorrupt indicates the persisted collection could not be decoded.
	ErrCorrupt = errors.New("stored sessions are corrupt")

	// ErrConnection indicates a connection problem with the backing store.
	ErrConnection = errors.New("store connection error")

	// ErrClosed indicates the store has been closed.
	ErrClosed = errors.New("store is closed")
)

// NotFoundError wraps ErrNotFound with the missing chat id.
type NotFoundError struct {
	ChatID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("session not found: %s", e.ChatID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// NewNotFoundError creates a typed not found error.
func NewNotFoundError(chatID string) error {
	return &NotFoundError{ChatID: chatID}
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsCorrupt checks if an error is a decode failure of stored data.
func IsCorrupt(err error) bool {
	return errors.Is(err, ErrCorrupt)
}

// IsConnection checks if an error is a connection error.
func IsConnection(err error) bool {
	return errors.Is(err, ErrConnection)
}
