// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu         sync.RWMutex
	users      map[string]*User      // keyed by user ID
	byUsername map[string]string     // username -> user ID
	recordings map[string]*Recording // keyed by recording ID
	audit      []AuditEntry

	// FailCreateRecording, when set, is returned by CreateRecording and
	// nothing is stored.
	FailCreateRecording error
}

// Ensure MockStore implements Store.
var _ Store = (*MockStore)(nil)

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		users:      make(map[string]*User),
		byUsername: make(map[string]string),
		recordings: make(map[string]*Recording),
	}
}

// CreateUser stores a new user.
func (m *MockStore) CreateUser(ctx context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byUsername[user.Username]; exists {
		return ErrUsernameExists
	}

	// Make a copy to avoid external modification
	u := *user
	m.users[u.ID] = &u
	m.byUsername[u.Username] = u.ID
	return nil
}

// GetUser retrieves a user by ID.
func (m *MockStore) GetUser(ctx context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}

	// Return a copy
	result := *u
	return &result, nil
}

// GetUserByUsername retrieves a user by username.
func (m *MockStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byUsername[username]
	if !ok {
		return nil, ErrNotFound
	}
	result := *m.users[id]
	return &result, nil
}

// CountUsersByRole returns how many users hold the given role.
func (m *MockStore) CountUsersByRole(ctx context.Context, role Role) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, u := range m.users {
		if u.Role == role {
			count++
		}
	}
	return count, nil
}

// CreateRecording stores a recording and its leads.
func (m *MockStore) CreateRecording(ctx context.Context, rec *Recording) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailCreateRecording != nil {
		return m.FailCreateRecording
	}
	if _, ok := m.users[rec.OwnerID]; !ok {
		return ErrNotFound
	}

	m.recordings[rec.ID] = copyRecording(rec)
	return nil
}

// GetRecording retrieves a recording owned by ownerID.
func (m *MockStore) GetRecording(ctx context.Context, ownerID, id string) (*Recording, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.recordings[id]
	if !ok || rec.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return copyRecording(rec), nil
}

// ListRecordings returns every recording owned by ownerID, oldest first.
func (m *MockStore) ListRecordings(ctx context.Context, ownerID string) ([]*Recording, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []*Recording{}
	for _, rec := range m.recordings {
		if rec.OwnerID == ownerID {
			result = append(result, copyRecording(rec))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Date.Equal(result[j].Date) {
			return result[i].ID < result[j].ID
		}
		return result[i].Date.Before(result[j].Date)
	})
	return result, nil
}

// DeleteRecording removes a recording owned by ownerID.
func (m *MockStore) DeleteRecording(ctx context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.recordings[id]
	if !ok || rec.OwnerID != ownerID {
		return ErrNotFound
	}
	delete(m.recordings, id)
	return nil
}

// AppendAuditLog appends an audit entry.
func (m *MockStore) AppendAuditLog(ctx context.Context, e *AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	m.audit = append(m.audit, *e)
	return nil
}

// ListAuditLog returns audit entries matching the filter, newest first.
func (m *MockStore) ListAuditLog(ctx context.Context, f AuditFilter) ([]AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	limit := normalizeAuditLimit(f.Limit)
	result := []AuditEntry{}
	for i := len(m.audit) - 1; i >= 0 && len(result) < limit; i-- {
		e := m.audit[i]
		if f.ActorID != nil && e.ActorID != *f.ActorID {
			continue
		}
		if f.Action != nil && e.Action != *f.Action {
			continue
		}
		result = append(result, e)
	}
	return result, nil
}

// Close is a no-op for MockStore.
func (m *MockStore) Close() error {
	return nil
}

func copyRecording(rec *Recording) *Recording {
	c := *rec
	c.Leads = make([]Lead, len(rec.Leads))
	for i, l := range rec.Leads {
		l.Signal = append([]int{}, l.Signal...)
		if l.NumberOfSamples != nil {
			n := *l.NumberOfSamples
			l.NumberOfSamples = &n
		}
		c.Leads[i] = l
	}
	return &c
}
