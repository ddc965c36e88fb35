package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/joss/scanchat/internal/domain"
)

// SQLite keeps the collection as one row per session.
type SQLite struct {
	mu         sync.Mutex
	db         *sql.DB
	path       string
	collection string
}

// Verify SQLite implements domain.LocalStore
var _ domain.LocalStore = (*SQLite)(nil)

// NewSQLite opens (or creates) the database file at path.
func NewSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal=WAL&_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db, path: path, collection: DefaultCollection}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chat_sessions (
		collection TEXT NOT NULL,
		chat_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		payload_json TEXT NOT NULL,
		last_updated DATETIME NOT NULL,
		PRIMARY KEY (collection, chat_id)
	);

	CREATE INDEX IF NOT EXISTS idx_chat_sessions_position ON chat_sessions(collection, position);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Path returns the database file.
func (s *SQLite) Path() string {
	return s.path
}

func (s *SQLite) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Load returns the collection in stored order.
func (s *SQLite) Load(ctx context.Context) ([]*domain.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, ErrClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT payload_json FROM chat_sessions
		WHERE collection = ?
		ORDER BY position ASC
	`, s.collection)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*domain.ChatSession
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sess, err := decodeSession([]byte(payload))
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// Save replaces the whole collection in one transaction.
func (s *SQLite) Save(ctx context.Context, sessions []*domain.ChatSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chat_sessions WHERE collection = ?`, s.collection); err != nil {
		return fmt.Errorf("clear sessions: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chat_sessions (collection, chat_id, position, payload_json, last_updated)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	position := 0
	seen := make(map[string]bool, len(sessions))
	for _, sess := range sessions {
		if sess == nil || seen[sess.ChatID] {
			continue
		}
		seen[sess.ChatID] = true

		payload, err := encodeSession(sess)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, s.collection, sess.ChatID, position, string(payload), sess.LastUpdated); err != nil {
			return fmt.Errorf("insert session %s: %w", sess.ChatID, err)
		}
		position++
	}

	return tx.Commit()
}
