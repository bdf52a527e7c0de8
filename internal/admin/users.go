// ABOUTME: UserService for admin-only principal management
// ABOUTME: Creates user principals and exposes the audit trail

package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/2389/ecg-gateway/internal/auth"
	"github.com/2389/ecg-gateway/internal/store"
)

var (
	// ErrValidation is returned when a create request is malformed.
	ErrValidation = errors.New("invalid user")

	// ErrCreateFailed is returned when the principal could not be stored,
	// including when the username is taken.
	ErrCreateFailed = errors.New("error creating user")
)

// UserStore defines the persistence needed for user administration.
type UserStore interface {
	CreateUser(ctx context.Context, user *store.User) error
	AppendAuditLog(ctx context.Context, e *store.AuditEntry) error
	ListAuditLog(ctx context.Context, f store.AuditFilter) ([]store.AuditEntry, error)
}

// UserService creates principals on behalf of an admin.
type UserService struct {
	store  UserStore
	hasher *auth.PasswordHasher
	logger *slog.Logger
}

// NewUserService creates a UserService.
func NewUserService(s UserStore, hasher *auth.PasswordHasher, logger *slog.Logger) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{
		store:  s,
		hasher: hasher,
		logger: logger.With("component", "admin"),
	}
}

// CreateUser creates a principal with role user. The actor must be an admin.
func (s *UserService) CreateUser(ctx context.Context, actor *store.User, username, password string) (*store.User, error) {
	if _, err := auth.RequireRole(actor, store.RoleAdmin); err != nil {
		return nil, err
	}

	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username required", ErrValidation)
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password required", ErrValidation)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreateFailed, err)
	}

	user := &store.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: hash,
		Role:         store.RoleUser,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		s.logger.Warn("failed to create user", "username", username, "actor", actor.Username, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrCreateFailed, err)
	}

	if err := s.store.AppendAuditLog(ctx, &store.AuditEntry{
		ActorID:    actor.ID,
		Action:     store.AuditCreateUser,
		TargetType: "user",
		TargetID:   user.ID,
		Detail:     map[string]any{"username": username},
	}); err != nil {
		s.logger.Warn("failed to append audit log", "action", store.AuditCreateUser, "error", err)
	}

	s.logger.Info("created user", "id", user.ID, "username", username, "actor", actor.Username)
	return user, nil
}

// ListAuditLog returns the newest audit entries matching f.
func (s *UserService) ListAuditLog(ctx context.Context, f store.AuditFilter) ([]store.AuditEntry, error) {
	entries, err := s.store.ListAuditLog(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("listing audit log: %w", err)
	}
	return entries, nil
}
