// ABOUTME: HTTP middleware for JWT authentication on API endpoints
// ABOUTME: Extracts the bearer token, resolves the principal, and enforces roles

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/2389/ecg-gateway/internal/store"
)

// CredentialsError is the detail returned with every 401 from the middleware.
const CredentialsError = "Could not validate credentials"

// PrincipalResolver maps a bearer token to a principal.
type PrincipalResolver interface {
	Resolve(ctx context.Context, token string) (*store.User, error)
}

// extractBearerToken extracts a bearer token from the Authorization header.
// Returns the token and an error message (empty if successful).
func extractBearerToken(authHeader string) (string, string) {
	if authHeader == "" {
		return "", "missing authorization header"
	}
	scheme, token, found := strings.Cut(authHeader, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", "invalid authorization header format"
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", "empty token"
	}
	return token, ""
}

// logAuthFailure logs an authentication failure with structured context.
func logAuthFailure(logger *slog.Logger, r *http.Request, reason string, attrs ...any) {
	if logger == nil {
		return
	}
	baseAttrs := []any{"reason", reason, "path", r.URL.Path, "remote_addr", r.RemoteAddr}
	baseAttrs = append(baseAttrs, attrs...)
	logger.Warn("http auth failure", baseAttrs...)
}

// WriteUnauthorized sends a 401 with the bearer challenge header.
func WriteUnauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeDetail(w, http.StatusUnauthorized, detail)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}

// HTTPAuthMiddleware creates an HTTP middleware that extracts and validates
// bearer tokens and adds the resolved principal to the request context.
// The logger is optional.
func HTTPAuthMiddleware(resolver PrincipalResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, errMsg := extractBearerToken(r.Header.Get("Authorization"))
			if errMsg != "" {
				logAuthFailure(logger, r, "token_extraction_failed", "detail", errMsg)
				WriteUnauthorized(w, CredentialsError)
				return
			}

			principal, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				if errors.Is(err, ErrUnauthorized) {
					logAuthFailure(logger, r, "token_verification_failed", "error", err)
					WriteUnauthorized(w, CredentialsError)
					return
				}
				if logger != nil {
					logger.Error("resolving principal", "error", err)
				}
				writeDetail(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// RequireRoleHTTP creates an HTTP middleware that requires the principal to
// hold exactly role. Must be used after HTTPAuthMiddleware.
func RequireRoleHTTP(role store.Role, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := FromContext(r.Context())
			if principal == nil {
				logAuthFailure(logger, r, "no_principal")
				WriteUnauthorized(w, CredentialsError)
				return
			}

			if _, err := RequireRole(principal, role); err != nil {
				logAuthFailure(logger, r, "role_check_failed",
					"username", principal.Username,
					"role", principal.Role,
					"required", role,
				)
				writeDetail(w, http.StatusForbidden, err.Error())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
