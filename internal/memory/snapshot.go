package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SnapshotStore persists a session's turns at session end and restores them
// at session start. It is not consulted mid-session.
type SnapshotStore interface {
	Save(ctx context.Context, sessionID string, turns []Turn) error
	Load(ctx context.Context, sessionID string) ([]Turn, error)
	Close() error
}

// NewSnapshotStore creates a sqlite-backed store when a database path is
// configured, otherwise a JSON file store rooted at dir.
func NewSnapshotStore(dir, sqlitePath string) (SnapshotStore, error) {
	if sqlitePath != "" {
		return NewSQLiteStore(sqlitePath)
	}
	return NewFileStore(dir), nil
}

// FileStore writes one memory-<session>.json file per session
type FileStore struct {
	dir string
}

// NewFileStore creates a file store writing snapshots under dir
func NewFileStore(dir string) *FileStore {
	if dir == "" {
		dir = "."
	}
	return &FileStore{dir: dir}
}

func (s *FileStore) path(sessionID string) string {
	return filepath.Join(s.dir, fmt.Sprintf("memory-%s.json", sessionID))
}

// Save writes the session's turns as indented JSON
func (s *FileStore) Save(_ context.Context, sessionID string, turns []Turn) error {
	data, err := json.MarshalIndent(turns, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal turns: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot dir: %w", err)
	}
	if err := os.WriteFile(s.path(sessionID), data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// Load reads a previously saved snapshot. A missing snapshot is not an
// error; it yields an empty sequence.
func (s *FileStore) Load(_ context.Context, sessionID string) ([]Turn, error) {
	data, err := os.ReadFile(s.path(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	var turns []Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return turns, nil
}

// Close is a no-op for the file store
func (s *FileStore) Close() error { return nil }
