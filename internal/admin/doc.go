// Package admin provides administrative operations for the gateway.
//
// # Overview
//
// UserService is used by the HTTP API behind the admin role gate. Every
// principal it creates has role "user"; admins are only ever created by the
// bootstrap in package auth.
//
// # Endpoints
//
//   - POST /auth/users/create - Create a user principal
//   - GET /auth/audit - List recent audit entries
//
// # Audit
//
// Each successful creation appends a create_user entry naming the admin who
// performed it.
package admin
