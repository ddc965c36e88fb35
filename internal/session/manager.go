// Package session manages the local cache of chat sessions and reconciles
// it with the server-side history when the user is signed in.
package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/joss/scanchat/internal/domain"
	"github.com/joss/scanchat/internal/logging"
	"github.com/joss/scanchat/internal/metrics"
	"github.com/joss/scanchat/internal/storage"
)

// MaxSessions caps the local collection; the oldest entries are evicted.
const MaxSessions = 50

// FileHint describes the file a new session is anchored to.
type FileHint struct {
	Name string
	Size int64
}

// UpsertOptions carries the optional parts of an upsert.
type UpsertOptions struct {
	TitleHint      string
	File           *FileHint
	AnalysisResult []byte
}

// Manager handles session lifecycle over a local store and an optional
// remote history.
type Manager struct {
	local  domain.LocalStore
	remote domain.RemoteSessions

	mu  sync.Mutex
	now func() time.Time
	log *logging.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger overrides the component logger.
func WithLogger(l *logging.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// NewManager creates a Manager. remote may be nil for local-only use.
func NewManager(local domain.LocalStore, remote domain.RemoteSessions, opts ...Option) *Manager {
	m := &Manager{
		local:  local,
		remote: remote,
		now:    time.Now,
		log:    logging.New("session"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// clock drops the monotonic reading so persisted times compare equal.
func (m *Manager) clock() time.Time {
	return m.now().Round(0)
}

// load reads the collection. A corrupt collection reads as empty and may
// be overwritten. Any other failure is returned: the stored history is
// still there and nothing may be written over it.
func (m *Manager) load(ctx context.Context) ([]*domain.ChatSession, error) {
	sessions, err := m.local.Load(ctx)
	if err == nil {
		return sessions, nil
	}
	corrupt := storage.IsCorrupt(err)
	m.log.Warn("local_load_failed", map[string]any{"corrupt": corrupt}, err)
	if corrupt {
		return nil, nil
	}
	return nil, fmt.Errorf("load sessions: %w", err)
}

func (m *Manager) save(ctx context.Context, sessions []*domain.ChatSession) error {
	err := m.local.Save(ctx, sessions)
	metrics.Global().RecordStoreWrite(err == nil)
	if err != nil {
		m.log.Error("local_save_failed", map[string]any{"sessions": len(sessions)}, err)
		return fmt.Errorf("save sessions: %w", err)
	}
	return nil
}

// List returns sessions newest first. Signed-in users read the remote
// history, falling back to the local cache on any remote error.
func (m *Manager) List(ctx context.Context, authenticated bool) []*domain.ChatSession {
	m.mu.Lock()
	defer m.mu.Unlock()

	local, loadErr := m.load(ctx)
	if !authenticated || m.remote == nil {
		SortByRecency(local)
		return local
	}

	start := time.Now()
	remote, err := m.remote.ListSessions(ctx)
	if err != nil {
		m.log.Warn("remote_list_failed", nil, err)
		SortByRecency(local)
		return local
	}
	m.log.TimedEvent("remote_list", start, map[string]any{"sessions": len(remote)})

	listed, cache := Merge(local, remote)
	// cache refresh is best effort, the listing stands on its own.
	// Without a readable cache the merge lacks local-only sessions.
	if loadErr == nil {
		_ = m.save(ctx, cache)
	}

	SortByRecency(listed)
	return listed
}

// Get returns one session from the local cache.
func (m *Manager) Get(ctx context.Context, chatID string) (*domain.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions, err := m.load(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range sessions {
		if s.ChatID == chatID {
			return s, nil
		}
	}
	return nil, storage.NewNotFoundError(chatID)
}

// Upsert appends one message to chatID, creating the session if needed.
func (m *Manager) Upsert(ctx context.Context, chatID string, msg domain.Message, opts UpsertOptions) (*domain.ChatSession, error) {
	return m.UpsertAll(ctx, chatID, []domain.Message{msg}, opts)
}

// UpsertAll appends msgs in order with a single persisted write.
// An empty chatID gets a freshly generated one.
func (m *Manager) UpsertAll(ctx context.Context, chatID string, msgs []domain.Message, opts UpsertOptions) (*domain.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if chatID == "" {
		chatID = NewChatID()
	}
	sessions, err := m.load(ctx)
	if err != nil {
		return nil, err
	}
	now := m.clock()

	var sess *domain.ChatSession
	for _, s := range sessions {
		if s.ChatID == chatID {
			sess = s
			break
		}
	}

	if sess != nil {
		sess.Append(now, msgs...)
		if opts.TitleHint != "" {
			sess.Title = opts.TitleHint
		}
		if opts.AnalysisResult != nil {
			sess.AnalysisResult = append([]byte(nil), opts.AnalysisResult...)
		}
		if opts.File != nil && sess.FileName == "" {
			sess.FileName = opts.File.Name
			sess.FileSize = opts.File.Size
		}
	} else {
		sess = &domain.ChatSession{
			ChatID:      chatID,
			CreatedAt:   now,
			LastUpdated: now,
		}
		if opts.File != nil {
			sess.FileName = opts.File.Name
			sess.FileSize = opts.File.Size
		}
		if opts.AnalysisResult != nil {
			sess.AnalysisResult = append([]byte(nil), opts.AnalysisResult...)
		}
		sess.Append(now, msgs...)
		sess.Title = newTitle(opts, msgs)

		sessions = append([]*domain.ChatSession{sess}, sessions...)
		if len(sessions) > MaxSessions {
			evicted := sessions[MaxSessions:]
			sessions = sessions[:MaxSessions]
			m.log.Info("sessions_evicted", map[string]any{"count": len(evicted)})
		}
	}

	if err := m.save(ctx, sessions); err != nil {
		return sess, err
	}
	return sess, nil
}

// Delete removes chatID. Signed-in users also delete it remotely; the
// local copy goes either way and a remote failure comes back as a
// *RetryableError.
func (m *Manager) Delete(ctx context.Context, chatID string, authenticated bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// read first so a failed load leaves both copies in place
	sessions, err := m.load(ctx)
	if err != nil {
		return err
	}

	var remoteErr error
	remoteTried := authenticated && m.remote != nil
	if remoteTried {
		remoteErr = m.remote.DeleteSession(ctx, chatID)
		if remoteErr != nil {
			m.log.Warn("remote_delete_failed", map[string]any{"chat_id": chatID}, remoteErr)
		}
	}

	kept := sessions[:0]
	found := false
	for _, s := range sessions {
		if s.ChatID == chatID {
			found = true
			continue
		}
		kept = append(kept, s)
	}

	if found {
		if err := m.save(ctx, kept); err != nil {
			return err
		}
	}

	if remoteErr != nil {
		return &RetryableError{Op: "delete", ChatID: chatID, Err: remoteErr}
	}
	if !found && !remoteTried {
		return storage.NewNotFoundError(chatID)
	}
	return nil
}

// SortByRecency orders sessions by LastUpdated, newest first.
func SortByRecency(sessions []*domain.ChatSession) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].LastUpdated.After(sessions[j].LastUpdated)
	})
}
