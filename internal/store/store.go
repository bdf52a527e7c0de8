// ABOUTME: Store interfaces and data types for ecg-gateway persistence
// ABOUTME: Defines User, Recording, Lead and the Store interface for database operations

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrUsernameExists is returned when trying to create a user with an existing username.
var ErrUsernameExists = errors.New("username already exists")

// User is an authentication subject. Role is fixed at creation.
type User struct {
	ID           string
	Username     string
	PasswordHash string // bcrypt hash
	Role         Role
	CreatedAt    time.Time
}

// Lead is one sampled channel of a recording.
type Lead struct {
	ID              string
	RecordingID     string // owning recording, lookup only
	Identifier      string // "I", "II", "III", ...
	Signal          []int  // insertion order is temporal order
	NumberOfSamples *int   // equals len(Signal) once stored
}

// Recording is one capture event containing multiple leads.
type Recording struct {
	ID      string
	OwnerID string
	Date    time.Time
	Leads   []Lead
}

// UserStore defines persistence for principals.
type UserStore interface {
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	CountUsersByRole(ctx context.Context, role Role) (int, error)
}

// RecordingStore defines persistence for recordings and their leads.
// Every read and delete is keyed by owner as well as id.
type RecordingStore interface {
	// CreateRecording writes the recording and all of its leads in one transaction.
	CreateRecording(ctx context.Context, rec *Recording) error
	GetRecording(ctx context.Context, ownerID, id string) (*Recording, error)
	ListRecordings(ctx context.Context, ownerID string) ([]*Recording, error)
	DeleteRecording(ctx context.Context, ownerID, id string) error
}

// AuditStore defines the append-only audit trail.
type AuditStore interface {
	AppendAuditLog(ctx context.Context, e *AuditEntry) error
	ListAuditLog(ctx context.Context, f AuditFilter) ([]AuditEntry, error)
}

// Store is the full persistence surface used by the gateway.
type Store interface {
	UserStore
	RecordingStore
	AuditStore

	// Close releases any resources held by the store
	Close() error
}
