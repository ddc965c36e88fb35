package api

import (
	"errors"
	"fmt"
)

// TransportError is a network failure or a non-2xx response.
type TransportError struct {
	Op         string
	StatusCode int // 0 when the request never got a response
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: server returned %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError is a 2xx response whose body is not valid JSON.
// Body keeps the raw payload for display.
type DecodeError struct {
	Op   string
	Body []byte
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: decode response: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// UserMessage converts a client error into text fit for a chat bubble.
func UserMessage(err error) string {
	var te *TransportError
	if errors.As(err, &te) {
		if te.StatusCode != 0 {
			return fmt.Sprintf("서버 오류가 발생했습니다 (HTTP %d)", te.StatusCode)
		}
		return fmt.Sprintf("서버에 연결할 수 없습니다: %v", te.Err)
	}
	var de *DecodeError
	if errors.As(err, &de) {
		return "서버 응답을 해석할 수 없습니다"
	}
	return err.Error()
}
