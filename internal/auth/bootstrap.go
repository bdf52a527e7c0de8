// ABOUTME: Admin bootstrap creating the first administrator from configuration
// ABOUTME: Idempotent; does nothing once any admin principal exists

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/2389/ecg-gateway/internal/store"
)

// BootstrapStore is the persistence surface needed to bootstrap an admin.
type BootstrapStore interface {
	CountUsersByRole(ctx context.Context, role store.Role) (int, error)
	CreateUser(ctx context.Context, user *store.User) error
	AppendAuditLog(ctx context.Context, e *store.AuditEntry) error
}

// Bootstrap ensures an admin principal exists. If none does, one is created
// with the given credentials. It reports whether a principal was created.
func Bootstrap(ctx context.Context, users BootstrapStore, hasher *PasswordHasher, username, password string) (bool, error) {
	logger := slog.Default().With("component", "auth")

	admins, err := users.CountUsersByRole(ctx, store.RoleAdmin)
	if err != nil {
		return false, fmt.Errorf("counting admins: %w", err)
	}
	if admins > 0 {
		logger.Debug("admin already present, skipping bootstrap", "admins", admins)
		return false, nil
	}

	if username == "" || password == "" {
		return false, errors.New("admin username and password are required to bootstrap")
	}

	hash, err := hasher.Hash(password)
	if err != nil {
		return false, err
	}

	admin := &store.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: hash,
		Role:         store.RoleAdmin,
		CreatedAt:    time.Now().UTC(),
	}
	if err := users.CreateUser(ctx, admin); err != nil {
		if errors.Is(err, store.ErrUsernameExists) {
			// A concurrent bootstrap may have won. Anything else leaves the
			// system without an administrator.
			admins, countErr := users.CountUsersByRole(ctx, store.RoleAdmin)
			if countErr != nil {
				return false, fmt.Errorf("counting admins: %w", countErr)
			}
			if admins > 0 {
				logger.Debug("admin created concurrently, skipping bootstrap", "username", username)
				return false, nil
			}
			return false, fmt.Errorf("bootstrap username %q is held by a non-admin principal", username)
		}
		return false, fmt.Errorf("creating admin: %w", err)
	}

	if err := users.AppendAuditLog(ctx, &store.AuditEntry{
		ActorID:    admin.ID,
		Action:     store.AuditBootstrapAdmin,
		TargetType: "user",
		TargetID:   admin.ID,
		Detail:     map[string]any{"username": username},
	}); err != nil {
		logger.Warn("failed to append audit log", "action", store.AuditBootstrapAdmin, "error", err)
	}

	logger.Info("bootstrapped admin principal", "username", username, "id", admin.ID)
	return true, nil
}
