// Package backup exports the session collection to a gzipped tar archive
// and restores it, which also moves history between store backends.
package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joss/scanchat/internal/domain"
	"github.com/joss/scanchat/internal/session"
)

const (
	formatVersion = "1.0"
	sessionsFile  = "sessions.json"
	metadataFile  = "metadata.json"
)

// ErrChecksum means the archived sessions do not match their recorded hash.
var ErrChecksum = errors.New("backup checksum mismatch")

// Metadata describes one archive.
type Metadata struct {
	Version     string            `json:"version"`
	CreatedAt   time.Time         `json:"created_at"`
	Description string            `json:"description"`
	Store       string            `json:"store"`
	Counts      map[string]int    `json:"counts"`
	Checksums   map[string]string `json:"checksums"`
}

// Manager handles backup operations against one store.
type Manager struct {
	store     domain.LocalStore
	storeKind string
	now       func() time.Time
}

// NewManager creates a backup manager. storeKind is recorded in the
// metadata only.
func NewManager(store domain.LocalStore, storeKind string) *Manager {
	return &Manager{store: store, storeKind: storeKind, now: time.Now}
}

// Export writes every stored session to outputPath.
func (m *Manager) Export(ctx context.Context, outputPath, description string) (*Metadata, error) {
	sessions, err := m.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading sessions: %w", err)
	}

	clean := make([]*domain.ChatSession, 0, len(sessions))
	for _, s := range sessions {
		clean = append(clean, s.Persistable())
	}
	data, err := json.MarshalIndent(clean, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding sessions: %w", err)
	}

	metadata := &Metadata{
		Version:     formatVersion,
		CreatedAt:   m.now().UTC(),
		Description: description,
		Store:       m.storeKind,
		Counts:      map[string]int{"sessions": len(clean)},
		Checksums:   map[string]string{sessionsFile: checksum(data)},
	}
	metaJSON, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding metadata: %w", err)
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("creating backup file: %w", err)
	}
	defer file.Close()

	gzw := gzip.NewWriter(file)
	tw := tar.NewWriter(gzw)

	if err := addToTar(tw, sessionsFile, data); err != nil {
		return nil, fmt.Errorf("adding sessions: %w", err)
	}
	if err := addToTar(tw, metadataFile, metaJSON); err != nil {
		return nil, fmt.Errorf("adding metadata: %w", err)
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("closing tar: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return nil, fmt.Errorf("closing gzip: %w", err)
	}
	return metadata, file.Close()
}

// Import restores sessions from a backup file. With merge, archived
// sessions are added to the current ones and the newer copy of a chat
// wins; without it the collection is replaced. The result is capped at
// session.MaxSessions, newest first.
func (m *Manager) Import(ctx context.Context, inputPath string, merge bool) (*Metadata, int, error) {
	metadata, files, err := readArchive(inputPath)
	if err != nil {
		return nil, 0, err
	}

	data, ok := files[sessionsFile]
	if !ok {
		return nil, 0, fmt.Errorf("backup missing %s", sessionsFile)
	}
	if want := metadata.Checksums[sessionsFile]; want != "" && want != checksum(data) {
		return nil, 0, ErrChecksum
	}

	var imported []*domain.ChatSession
	if err := json.Unmarshal(data, &imported); err != nil {
		return nil, 0, fmt.Errorf("parsing sessions: %w", err)
	}

	var current []*domain.ChatSession
	if merge {
		current, err = m.store.Load(ctx)
		if err != nil {
			return nil, 0, fmt.Errorf("loading sessions: %w", err)
		}
	}

	result := combine(current, imported)
	if err := m.store.Save(ctx, result); err != nil {
		return nil, 0, fmt.Errorf("saving sessions: %w", err)
	}
	return metadata, len(result), nil
}

// List shows the metadata of a backup without importing.
func (m *Manager) List(inputPath string) (*Metadata, error) {
	metadata, _, err := readArchive(inputPath)
	return metadata, err
}

// combine keeps one entry per chat id, preferring the later LastUpdated.
func combine(current, imported []*domain.ChatSession) []*domain.ChatSession {
	byID := make(map[string]*domain.ChatSession, len(current)+len(imported))
	var order []string
	for _, list := range [][]*domain.ChatSession{current, imported} {
		for _, s := range list {
			if s == nil || s.ChatID == "" {
				continue
			}
			prev, seen := byID[s.ChatID]
			if !seen {
				order = append(order, s.ChatID)
			}
			if !seen || s.LastUpdated.After(prev.LastUpdated) {
				byID[s.ChatID] = s.Persistable()
			}
		}
	}

	out := make([]*domain.ChatSession, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	session.SortByRecency(out)
	if len(out) > session.MaxSessions {
		out = out[:session.MaxSessions]
	}
	return out
}

func readArchive(inputPath string) (*Metadata, map[string][]byte, error) {
	file, err := os.Open(inputPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening backup: %w", err)
	}
	defer file.Close()

	gzr, err := gzip.NewReader(file)
	if err != nil {
		return nil, nil, fmt.Errorf("gzip reader: %w", err)
	}
	defer gzr.Close()

	tr := tar.NewReader(gzr)
	var metadata *Metadata
	files := make(map[string][]byte)

	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("reading tar: %w", err)
		}

		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, nil, fmt.Errorf("reading %s: %w", header.Name, err)
		}

		if header.Name == metadataFile {
			metadata = &Metadata{}
			if err := json.Unmarshal(data, metadata); err != nil {
				return nil, nil, fmt.Errorf("parsing metadata: %w", err)
			}
			continue
		}
		files[header.Name] = data
	}

	if metadata == nil {
		return nil, nil, fmt.Errorf("backup missing metadata")
	}
	return metadata, files, nil
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func addToTar(tw *tar.Writer, name string, data []byte) error {
	header := &tar.Header{
		Name:    name,
		Mode:    0644,
		Size:    int64(len(data)),
		ModTime: time.Now(),
	}
	if err := tw.WriteHeader(header); err != nil {
		return err
	}
	_, err := tw.Write(data)
	return err
}
