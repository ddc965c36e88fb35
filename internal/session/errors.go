package session

import "fmt"

// RetryableError is a remote failure the user should be asked to retry.
type RetryableError struct {
	Op     string
	ChatID string
	Err    error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.ChatID, e.Err)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}
