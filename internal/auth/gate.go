// ABOUTME: Authentication gate exchanging credentials for tokens and tokens for principals
// ABOUTME: Also provides the role predicate used to guard operations

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/2389/ecg-gateway/internal/store"
)

// Gate errors
var (
	// ErrUnauthorized means the caller could not be identified.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden means the caller was identified but lacks the required role.
	ErrForbidden = errors.New("forbidden")
)

// RoleError reports the role a caller was missing. It matches ErrForbidden.
type RoleError struct {
	Required store.Role
}

func (e *RoleError) Error() string {
	return string(e.Required) + " required"
}

// Is reports ErrForbidden as a match.
func (e *RoleError) Is(target error) bool {
	return target == ErrForbidden
}

// DefaultTokenTTL is the lifetime of issued tokens when none is configured.
const DefaultTokenTTL = 5 * time.Minute

// UserLookup finds principals by username.
type UserLookup interface {
	GetUserByUsername(ctx context.Context, username string) (*store.User, error)
}

// Gate authenticates principals.
type Gate struct {
	users  UserLookup
	tokens TokenIssuer
	hasher *PasswordHasher
	ttl    time.Duration
	logger *slog.Logger

	// dummyHash is compared against for unknown users.
	dummyHash string
}

// NewGate creates a Gate. A non-positive ttl selects DefaultTokenTTL.
func NewGate(users UserLookup, tokens TokenIssuer, hasher *PasswordHasher, ttl time.Duration, logger *slog.Logger) (*Gate, error) {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if logger == nil {
		logger = slog.Default()
	}

	dummyHash, err := hasher.Hash("not-a-real-password")
	if err != nil {
		return nil, fmt.Errorf("building dummy hash: %w", err)
	}

	return &Gate{
		users:     users,
		tokens:    tokens,
		hasher:    hasher,
		ttl:       ttl,
		logger:    logger.With("component", "auth"),
		dummyHash: dummyHash,
	}, nil
}

// TokenTTL returns the lifetime given to issued tokens.
func (g *Gate) TokenTTL() time.Duration {
	return g.ttl
}

// Authenticate checks username and password and returns a signed token whose
// subject is the username.
func (g *Gate) Authenticate(ctx context.Context, username, password string) (string, error) {
	user, err := g.users.GetUserByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return "", fmt.Errorf("looking up user: %w", err)
		}
		// Spend the same time as a real comparison.
		g.hasher.Compare(g.dummyHash, password)
		g.logger.Warn("login failed", "reason", "unknown_user", "username", username)
		return "", fmt.Errorf("%w: incorrect username or password", ErrUnauthorized)
	}

	if !g.hasher.Compare(user.PasswordHash, password) {
		g.logger.Warn("login failed", "reason", "bad_password", "username", username)
		return "", fmt.Errorf("%w: incorrect username or password", ErrUnauthorized)
	}

	token, err := g.tokens.Issue(user.Username, g.ttl)
	if err != nil {
		return "", fmt.Errorf("issuing token: %w", err)
	}

	g.logger.Debug("issued token", "username", user.Username, "ttl", g.ttl)
	return token, nil
}

// Resolve maps a bearer token to the principal it names.
// Any token problem, or an unknown subject, is ErrUnauthorized.
func (g *Gate) Resolve(ctx context.Context, token string) (*store.User, error) {
	username, err := g.tokens.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	user, err := g.users.GetUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown principal %q", ErrUnauthorized, username)
	}
	if err != nil {
		return nil, fmt.Errorf("resolving principal: %w", err)
	}
	return user, nil
}

// RequireRole returns p when it holds exactly role, a *RoleError otherwise.
func RequireRole(p *store.User, role store.Role) (*store.User, error) {
	if p == nil {
		return nil, ErrUnauthorized
	}
	if !p.Role.Satisfies(role) {
		return nil, &RoleError{Required: role}
	}
	return p, nil
}
