// Package gateway orchestrates the ecg-gateway server components.
//
// # Overview
//
// The gateway package owns the store, the authentication gate, the recording
// repository and the user service, and exposes them over HTTP. An optional
// gRPC server carries only the standard grpc.health.v1 service.
//
// # HTTP API
//
// Routes are registered in gateway.go and handled in api.go:
//
//   - GET / - Greeting
//   - GET /health - Liveness check
//   - GET /docs - Rendered API reference
//   - POST /auth/token - Exchange form credentials for a bearer token
//   - GET /auth/users/me - Current principal
//   - POST /auth/users/create - Create a user principal (admin)
//   - GET /auth/audit - Audit trail (admin)
//   - GET /ecg/get_all - Caller's recordings (user)
//   - GET /ecg/get/{id} - One recording (user)
//   - POST /ecg/create - Store a recording (user)
//   - GET /ecg/get_insight/{id} - Zero crossings per lead (user)
//   - DELETE /ecg/delete/{id} - Remove a recording (user)
//
// Errors are JSON objects of the form {"detail": "..."}.
//
// # Lifecycle
//
//	gw, err := gateway.New(cfg, logger)
//	if err != nil { ... }
//	err = gw.Run(ctx) // blocks until ctx is canceled
//
// Run listens on TCP, or on a tsnet node when tailscale is enabled, and
// performs a graceful shutdown with a 5 second deadline once ctx ends.
// Shutdown flips the gRPC health status to NOT_SERVING before the servers
// stop and closes the store last.
package gateway
