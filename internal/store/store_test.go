package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

// createTestUser inserts a user with the given username and role.
func createTestUser(t *testing.T, s UserStore, username string, role Role) *User {
	t.Helper()
	user := &User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: "$2a$10$not-a-real-hash",
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, s.CreateUser(context.Background(), user))
	return user
}

// newTestRecording builds a recording for owner with one lead per signal.
func newTestRecording(ownerID string, signals map[string][]int, order ...string) *Recording {
	rec := &Recording{
		ID:      uuid.New().String(),
		OwnerID: ownerID,
		Date:    time.Now().UTC(),
	}
	for _, ident := range order {
		n := len(signals[ident])
		rec.Leads = append(rec.Leads, Lead{
			ID:              uuid.New().String(),
			RecordingID:     rec.ID,
			Identifier:      ident,
			Signal:          signals[ident],
			NumberOfSamples: &n,
		})
	}
	return rec
}

func generateTestID(prefix string, i int) string {
	return fmt.Sprintf("%s-%d", prefix, i)
}
