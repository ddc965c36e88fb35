package storage

import (
	"context"
	"sync"

	"github.com/joss/scanchat/internal/domain"
)

// Memory is an in-process store. It keeps the encoded form so callers
// never share pointers with the stored copy.
type Memory struct {
	mu     sync.Mutex
	data   []byte
	closed bool
}

var _ domain.LocalStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Load(ctx context.Context) ([]*domain.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	return decodeCollection(m.data)
}

func (m *Memory) Save(ctx context.Context, sessions []*domain.ChatSession) error {
	data, err := encodeCollection(sessions)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.data = data
	return nil
}

// SetRaw replaces the stored bytes as-is.
func (m *Memory) SetRaw(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
}

// Raw returns a copy of the stored bytes.
func (m *Memory) Raw() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.data...)
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
