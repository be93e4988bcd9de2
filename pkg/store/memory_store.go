package store

import (
	"sync"
	"time"

	"langstory/pkg/domain"
)

// MemoryStore keeps user rows in-process. Used by tests and local runs
// without Postgres. Reads and writes deep-copy the languages structure so
// callers mutate private snapshots, mirroring the row read-modify-write of
// the database store.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]domain.User // key: user ID
	email map[string]string      // email -> user ID
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]domain.User),
		email: make(map[string]string),
	}
}

// SaveUser stores or replaces a user row.
func (m *MemoryStore) SaveUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.Languages = cloneLanguages(u.Languages)
	if prev, ok := m.users[u.ID]; ok && prev.Email != u.Email {
		delete(m.email, prev.Email)
	}
	m.users[u.ID] = u
	m.email[u.Email] = u.ID
	return nil
}

// HasUserEmail checks if email exists.
func (m *MemoryStore) HasUserEmail(email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.email[email]
	return ok, nil
}

// GetUserByEmail looks up a user by email.
func (m *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.email[email]
	if !ok {
		return domain.User{}, false, nil
	}
	user := m.users[id]
	user.Languages = cloneLanguages(user.Languages)
	return user, true, nil
}

// GetUserByID returns a user by ID.
func (m *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[id]
	if !ok {
		return domain.User{}, false, nil
	}
	user.Languages = cloneLanguages(user.Languages)
	return user, true, nil
}

// SaveLanguages replaces the user's languages structure wholesale.
func (m *MemoryStore) SaveLanguages(userID string, languages domain.Languages) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return nil
	}
	user.Languages = cloneLanguages(languages)
	user.UpdatedAt = time.Now().UTC()
	m.users[userID] = user
	return nil
}

// SaveCoin overwrites the coin balance.
func (m *MemoryStore) SaveCoin(userID string, coin int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return nil
	}
	user.Coin = coin
	user.UpdatedAt = time.Now().UTC()
	m.users[userID] = user
	return nil
}

func cloneLanguages(languages domain.Languages) domain.Languages {
	out := make(domain.Languages, len(languages))
	for code, bucket := range languages {
		cloned := domain.LanguageBucket{}
		if bucket.Stories != nil {
			cloned.Stories = make([]domain.Story, len(bucket.Stories))
			copy(cloned.Stories, bucket.Stories)
		}
		if bucket.Words != nil {
			cloned.Words = make([]domain.SavedWord, len(bucket.Words))
			copy(cloned.Words, bucket.Words)
		}
		out[code] = cloned
	}
	return out
}
