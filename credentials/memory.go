package credentials

import (
	"context"
	"sync"

	"github.com/MrEthical07/dualauth/password"
	"github.com/samber/oops"
)

// DemoPassword is the plaintext password of DemoUser.
const DemoPassword = "password123"

// DemoUser returns the seed account used by local runs and tests, with its
// password hashed by h.
func DemoUser(h password.Hasher) (Record, error) {
	hash, err := h.Hash(DemoPassword)
	if err != nil {
		return Record{}, oops.In("credentials").Wrapf(err, "hash demo password")
	}
	return Record{
		Username:     "test_user",
		PasswordHash: hash,
		UserID:       "123",
		DisplayName:  "test_user",
		Email:        "test@example.com",
		Role:         RoleAdmin,
	}, nil
}

// MemoryStore is a map-backed Store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore returns a store holding seed.
func NewMemoryStore(seed ...Record) *MemoryStore {
	m := &MemoryStore{records: make(map[string]Record, len(seed))}
	for _, r := range seed {
		m.records[r.Username] = r
	}
	return m
}

// Put inserts or replaces a record.
func (m *MemoryStore) Put(r Record) {
	m.mu.Lock()
	m.records[r.Username] = r
	m.mu.Unlock()
}

func (m *MemoryStore) LookupCredential(_ context.Context, username string) (Record, error) {
	m.mu.RLock()
	r, ok := m.records[username]
	m.mu.RUnlock()
	if !ok {
		return Record{}, oops.In("credentials").With("username", username).Wrap(ErrNotFound)
	}
	return r, nil
}
