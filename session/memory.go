package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store guarded by a single RWMutex. Records are
// copied on the way in and out, so callers never observe a partial write.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	now      func() time.Time
}

// NewMemoryStore returns an empty store. A nil now uses time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		sessions: make(map[string]Session),
		now:      now,
	}
}

func (m *MemoryStore) Create(_ context.Context, sess *Session) (string, error) {
	if err := validateForCreate(sess); err != nil {
		return "", err
	}

	m.mu.Lock()
	m.sessions[sess.SessionID] = *sess
	m.mu.Unlock()

	return sess.SessionID, nil
}

func (m *MemoryStore) Get(_ context.Context, sessionID string) (*Session, error) {
	m.mu.RLock()
	sess, ok := m.sessions[sessionID]
	m.mu.RUnlock()

	if !ok {
		return nil, invalidSession()
	}
	if sess.ExpiredAt(m.now()) {
		return nil, expiredSession()
	}
	return &sess, nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	sess, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()

	if !ok {
		return invalidSession()
	}
	if sess.ExpiredAt(m.now()) {
		return expiredSession()
	}
	return nil
}

// Len returns the number of records held, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close drops every record. The store stays usable afterwards.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	m.sessions = make(map[string]Session)
	m.mu.Unlock()
	return nil
}
