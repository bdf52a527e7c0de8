// ABOUTME: Tests for the authentication gate and password hashing
// ABOUTME: Covers login, token resolution, and unknown or expired subjects

package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/2389/ecg-gateway/internal/store"
)

// newTestGate returns a gate over a mock store holding one user per role.
func newTestGate(t *testing.T) (*Gate, *store.MockStore, *JWTIssuer) {
	t.Helper()

	ms := store.NewMockStore()
	hasher := NewPasswordHasher(bcrypt.MinCost)
	for _, u := range []struct {
		name string
		role store.Role
	}{{"alice", store.RoleUser}, {"root", store.RoleAdmin}} {
		hash, err := hasher.Hash(u.name + "-password")
		require.NoError(t, err)
		require.NoError(t, ms.CreateUser(context.Background(), &store.User{
			ID:           u.name + "-id",
			Username:     u.name,
			PasswordHash: hash,
			Role:         u.role,
			CreatedAt:    time.Now().UTC(),
		}))
	}

	issuer, err := NewJWTIssuer([]byte("gate-test-secret"), "HS256")
	require.NoError(t, err)

	gate, err := NewGate(ms, issuer, hasher, 0, nil)
	require.NoError(t, err)
	return gate, ms, issuer
}

func TestGate_AuthenticateAndResolve(t *testing.T) {
	gate, _, _ := newTestGate(t)
	ctx := context.Background()

	token, err := gate.Authenticate(ctx, "alice", "alice-password")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	user, err := gate.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "alice-id", user.ID)
	assert.Equal(t, store.RoleUser, user.Role)
}

func TestGate_DefaultTTL(t *testing.T) {
	gate, _, _ := newTestGate(t)
	assert.Equal(t, 5*time.Minute, gate.TokenTTL())
}

func TestGate_AuthenticateFailures(t *testing.T) {
	gate, _, _ := newTestGate(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "alice", "nope"},
		{"unknown user", "mallory", "alice-password"},
		{"empty password", "alice", ""},
		{"other user's password", "alice", "root-password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := gate.Authenticate(ctx, tt.username, tt.password)
			assert.ErrorIs(t, err, ErrUnauthorized)
			assert.Empty(t, token)
		})
	}
}

func TestGate_ResolveRejects(t *testing.T) {
	gate, _, issuer := newTestGate(t)
	ctx := context.Background()

	expired, err := issuer.Issue("alice", -time.Minute)
	require.NoError(t, err)
	unknown, err := issuer.Issue("ghost", time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		inner error
	}{
		{"garbage", "garbage", ErrInvalidToken},
		{"expired", expired, ErrExpiredToken},
		{"unknown subject", unknown, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := gate.Resolve(ctx, tt.token)
			assert.Nil(t, user)
			assert.ErrorIs(t, err, ErrUnauthorized)
			if tt.inner != nil {
				assert.ErrorIs(t, err, tt.inner)
			}
		})
	}
}

type failingLookup struct{ err error }

func (f failingLookup) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	return nil, f.err
}

func TestGate_StoreErrorIsNotUnauthorized(t *testing.T) {
	issuer, err := NewJWTIssuer([]byte("secret"), "")
	require.NoError(t, err)
	boom := errors.New("database is locked")
	gate, err := NewGate(failingLookup{err: boom}, issuer, NewPasswordHasher(bcrypt.MinCost), time.Minute, nil)
	require.NoError(t, err)

	token, err := issuer.Issue("alice", time.Minute)
	require.NoError(t, err)

	_, err = gate.Resolve(context.Background(), token)
	assert.ErrorIs(t, err, boom)
	assert.False(t, errors.Is(err, ErrUnauthorized))

	_, err = gate.Authenticate(context.Background(), "alice", "pw")
	assert.ErrorIs(t, err, boom)
}

func TestNewGate_BuildsDummyHash(t *testing.T) {
	gate, _, _ := newTestGate(t)

	cost, err := bcrypt.Cost([]byte(gate.dummyHash))
	require.NoError(t, err, "unknown users must be compared against a real bcrypt hash")
	assert.Equal(t, bcrypt.MinCost, cost)
}

func TestPasswordHasher(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	hash, err := h.Hash("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)
	assert.True(t, h.Compare(hash, "s3cret"))
	assert.False(t, h.Compare(hash, "S3cret"))
	assert.False(t, h.Compare("not-a-hash", "s3cret"))
}

func TestNewPasswordHasher_Cost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewPasswordHasher(0).Cost())
	assert.Equal(t, bcrypt.MinCost, NewPasswordHasher(1).Cost())
	assert.Equal(t, bcrypt.MaxCost, NewPasswordHasher(99).Cost())
	assert.Equal(t, 12, NewPasswordHasher(12).Cost())
}
