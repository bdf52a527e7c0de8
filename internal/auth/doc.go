// Package auth provides authentication and authorization for ecg-gateway.
//
// # Credentials and Tokens
//
// Principals log in with a username and password. Passwords are stored as
// bcrypt hashes (PasswordHasher). A successful login returns a JWT whose
// "sub" claim is the username and whose lifetime is the configured token TTL
// (five minutes by default):
//
//	token, err := gate.Authenticate(ctx, "alice", "secret")
//	user, err := gate.Resolve(ctx, token)
//
// Tokens are signed with HMAC (HS256, HS384 or HS512). Verification pins the
// configured algorithm; a token signed any other way is rejected.
//
// # Roles
//
// Every principal has exactly one role, "user" or "admin". RequireRole is an
// exact match: an admin does not pass a check for "user".
//
// # HTTP Middleware
//
//	authed := auth.HTTPAuthMiddleware(gate, logger)
//	adminOnly := auth.RequireRoleHTTP(store.RoleAdmin, logger)
//	mux.Handle("POST /auth/users/create", authed(adminOnly(handler)))
//
// Failures produce a JSON body of the form {"detail": "..."}. A 401 carries
// a "WWW-Authenticate: Bearer" header.
//
// # Bootstrap
//
// Bootstrap creates the first admin from configuration when no admin exists.
// Running it again is a no-op.
package auth
