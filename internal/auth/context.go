// ABOUTME: Principal context for tracking identity through request handlers
// ABOUTME: Provides WithPrincipal/FromContext for propagating the caller via context

package auth

import (
	"context"

	"github.com/2389/ecg-gateway/internal/store"
)

// principalContextKey is the key type for storing the principal in context.Context.
type principalContextKey struct{}

// WithPrincipal returns a new context with the principal attached.
func WithPrincipal(ctx context.Context, p *store.User) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// FromContext retrieves the principal from the context, returning nil if not present.
func FromContext(ctx context.Context) *store.User {
	val := ctx.Value(principalContextKey{})
	if val == nil {
		return nil
	}
	p, ok := val.(*store.User)
	if !ok {
		return nil
	}
	return p
}

// MustFromContext retrieves the principal from the context, panicking if not present.
func MustFromContext(ctx context.Context) *store.User {
	p := FromContext(ctx)
	if p == nil {
		panic("auth: principal not found in context")
	}
	return p
}
