// Package session owns the per-session state: each live session exclusively
// holds its conversation log and style profile, so concurrent sessions need
// no coordination beyond the manager's own map.
package session

import (
	"context"
	"math/rand"
	"sync"

	"github.com/djvaroli/cinemai/internal/memory"
	"github.com/djvaroli/cinemai/internal/style"
)

const idAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewID generates a random session identifier
func NewID() string {
	return NewIDWithLength(6)
}

// NewIDWithLength generates a random alphanumeric session identifier
func NewIDWithLength(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = idAlphabet[rand.Intn(len(idAlphabet))]
	}
	return string(b)
}

// Session is one conversation's state
type Session struct {
	ID      string
	Log     *memory.Log
	Profile *style.Profile
}

// Manager tracks live sessions by ID. Dispatching within a session stays
// strictly sequential; the manager only guards its own map.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	store    memory.SnapshotStore
}

// NewManager creates a session manager. store may be nil when snapshots are
// disabled.
func NewManager(store memory.SnapshotStore) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		store:    store,
	}
}

// Create starts a new session with a fresh log and empty profile, restoring
// any prior snapshot for the generated ID (new random IDs almost never have
// one, but explicit IDs via CreateWithID do).
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	return m.CreateWithID(ctx, NewID())
}

// CreateWithID starts (or resumes, when a snapshot exists) the session with
// the given ID.
func (m *Manager) CreateWithID(ctx context.Context, id string) (*Session, error) {
	log := memory.NewLog()
	if m.store != nil {
		turns, err := m.store.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		if len(turns) > 0 {
			log = memory.Restore(turns)
		}
	}

	s := &Session{
		ID:      id,
		Log:     log,
		Profile: style.NewProfile(),
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	return s, nil
}

// Get returns the live session with the given ID
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Count returns the number of live sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// End snapshots the session's memory (when a store is configured) and
// removes it from the manager.
func (m *Manager) End(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok || m.store == nil {
		return nil
	}
	return m.store.Save(ctx, id, s.Log.All())
}
