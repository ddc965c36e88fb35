package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joss/scanchat/internal/domain"
)

func sampleSessions() []*domain.ChatSession {
	t0 := time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)
	a := &domain.ChatSession{
		ChatID:         "aaaaaaaaaaaa",
		Title:          "sample.apk 파일의 악성 코드 분석",
		FileName:       "sample.apk",
		FileSize:       2048,
		CreatedAt:      t0,
		LastUpdated:    t0.Add(time.Minute),
		AnalysisResult: json.RawMessage(`{"sessionId":"aaaaaaaaaaaa","analysisResult":{}}`),
		Messages: []domain.Message{
			domain.NewUserMessage("", "sample.apk", t0),
			domain.NewLoading(t0),
			domain.NewReply("done", t0.Add(time.Minute)),
		},
		MessageCount: 3,
	}
	b := &domain.ChatSession{
		ChatID:      "bbbbbbbbbbbb",
		Title:       "새 채팅",
		CreatedAt:   t0,
		LastUpdated: t0,
	}
	return []*domain.ChatSession{a, b}
}

// exerciseStore runs the shared contract against any backend.
func exerciseStore(t *testing.T, s domain.LocalStore) {
	t.Helper()
	ctx := context.Background()

	empty, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, s.Save(ctx, sampleSessions()))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "aaaaaaaaaaaa", got[0].ChatID)
	assert.Equal(t, "bbbbbbbbbbbb", got[1].ChatID)

	// loading placeholder filtered and count recomputed
	assert.Len(t, got[0].Messages, 2)
	assert.Equal(t, 2, got[0].MessageCount)
	for _, m := range got[0].Messages {
		assert.False(t, m.IsLoading)
	}
	assert.Equal(t, int64(2048), got[0].FileSize)
	assert.JSONEq(t, `{"sessionId":"aaaaaaaaaaaa","analysisResult":{}}`, string(got[0].AnalysisResult))
	assert.True(t, got[0].LastUpdated.Equal(time.Date(2024, 6, 15, 9, 1, 0, 0, time.UTC)))

	// save replaces the collection
	require.NoError(t, s.Save(ctx, got[1:]))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "bbbbbbbbbbbb", got[0].ChatID)

	require.NoError(t, s.Save(ctx, nil))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestMemoryCorrupt(t *testing.T) {
	m := NewMemory()
	m.SetRaw([]byte(`{not json`))

	_, err := m.Load(context.Background())
	require.Error(t, err)
	assert.True(t, IsCorrupt(err))
}

func TestMemoryClosed(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Close())

	_, err := m.Load(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, m.Save(context.Background(), nil), ErrClosed)
}

func TestMemoryDoesNotAlias(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	sessions := sampleSessions()
	require.NoError(t, m.Save(ctx, sessions))

	sessions[0].Title = "changed"
	got, err := m.Load(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, "changed", got[0].Title)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLite(filepath.Join(t.TempDir(), "data", "sessions.db"))
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
}

func TestSQLiteReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	ctx := context.Background()

	s, err := NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, sampleSessions()))
	require.NoError(t, s.Close())

	s, err = NewSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, path, s.Path())
}

func TestSQLiteDuplicateIDsKeepFirst(t *testing.T) {
	s, err := NewSQLite(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	sessions := sampleSessions()
	dup := *sessions[0]
	dup.Title = "dup"
	require.NoError(t, s.Save(ctx, append(sessions, &dup)))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.NotEqual(t, "dup", got[0].Title)
}

func TestSQLiteClosed(t *testing.T) {
	s, err := NewSQLite(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.Load(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("SCANCHAT_TEST_REDIS_URL")
	if url == "" {
		t.Skip("SCANCHAT_TEST_REDIS_URL not set")
	}
	ctx := context.Background()

	r, err := NewRedis(ctx, url)
	require.NoError(t, err)
	defer r.Close()
	require.NoError(t, r.rdb.Del(ctx, r.key).Err())

	exerciseStore(t, r)
}

func TestRedisBadURL(t *testing.T) {
	_, err := NewRedis(context.Background(), "not-a-url")
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Options{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	s, err = Open(ctx, Options{SQLitePath: filepath.Join(t.TempDir(), "x.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, s)
	s.Close()

	_, err = Open(ctx, Options{Backend: "mongo"})
	assert.Error(t, err)
}

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("abc")

	assert.True(t, IsNotFound(err))
	assert.False(t, IsCorrupt(err))
	assert.Equal(t, "session not found: abc", err.Error())

	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "abc", nf.ChatID)
}
