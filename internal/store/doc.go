// Package store provides persistent storage for the gateway using SQLite.
//
// # Architecture
//
// The store package is split into small interfaces composed into Store:
//
//   - UserStore: principals (username, bcrypt hash, role)
//   - RecordingStore: ECG recordings and their leads
//   - AuditStore: append-only audit trail
//
// SQLiteStore implements all of them in a single struct. MockStore is an
// in-memory implementation for unit tests.
//
// # Ownership
//
// Every recording read and delete is keyed by owner as well as id. A
// recording owned by someone else is indistinguishable from one that does
// not exist: both return ErrNotFound.
//
// # SQLite Configuration
//
// Two drivers are supported:
//
//   - "sqlite": modernc.org/sqlite, pure Go (default)
//   - "sqlite3": github.com/mattn/go-sqlite3, cgo
//
// Foreign keys and a busy timeout are set in the connection string so every
// pooled connection has them. File databases use WAL mode. ":memory:" opens
// a private database pinned to one connection.
//
// # Error Handling
//
//   - ErrNotFound: requested entity does not exist (or is not visible)
//   - ErrUsernameExists: username already taken
//
// All methods accept context.Context for cancellation support.
package store
