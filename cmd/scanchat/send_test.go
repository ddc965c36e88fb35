package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joss/scanchat/internal/chat"
)

func TestExpandFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.apk", "a.apk", "nested/deep/c.apk", "notes.txt"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}

	got, err := expandFiles(filepath.Join(dir, "**", "*.apk"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.apk"),
		filepath.Join(dir, "b.apk"),
		filepath.Join(dir, "nested", "deep", "c.apk"),
	}, got)

	got, err = expandFiles(filepath.Join(dir, "notes.txt"))
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = expandFiles(filepath.Join(dir, "*.exe"))
	assert.ErrorContains(t, err, "no files match")

	_, err = expandFiles(filepath.Join(dir, "[a"))
	assert.Error(t, err)
}

func TestExpandFilesSkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "only.apk"), 0o755))

	_, err := expandFiles(filepath.Join(dir, "*.apk"))
	assert.ErrorContains(t, err, "no files match")
}

func TestDescribeSendError(t *testing.T) {
	err := describeSendError(&chat.ValidationError{Field: "text", Err: chat.ErrTooLong})
	assert.EqualError(t, err, "message is too long (max 3000 characters)")

	err = describeSendError(&chat.ValidationError{Field: "text", Err: chat.ErrEmptyInput})
	assert.EqualError(t, err, "nothing to send: give a message or --file")

	assert.Equal(t, chat.ErrSendInProgress, describeSendError(chat.ErrSendInProgress))
}
