// ABOUTME: SQLite implementation of the Store interface
// ABOUTME: Supports the pure-Go modernc driver and the cgo mattn driver with automatic schema creation

package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Driver names accepted by OpenSQLiteStore.
const (
	DriverModernc = "sqlite"  // modernc.org/sqlite, pure Go
	DriverMattn   = "sqlite3" // github.com/mattn/go-sqlite3, cgo
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store at the given path using the
// pure-Go driver. The schema is automatically created if it doesn't exist.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	return OpenSQLiteStore(DriverModernc, path)
}

// OpenSQLiteStore opens a store with the named driver.
// Parent directories are created if needed. ":memory:" opens a private
// in-memory database pinned to a single connection.
func OpenSQLiteStore(driver, path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	memory := path == ":memory:"
	if !memory {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	dsn, err := buildDSN(driver, path)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if memory {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	} else {
		// Enable WAL mode for better concurrent performance
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enabling WAL mode: %w", err)
		}
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "driver", driver, "path", path)
	return s, nil
}

// buildDSN returns a connection string that enables foreign keys and a busy
// timeout on every pooled connection, not just the first one.
func buildDSN(driver, path string) (string, error) {
	switch driver {
	case DriverModernc:
		return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", nil
	case DriverMattn:
		return "file:" + path + "?_foreign_keys=on&_busy_timeout=5000", nil
	default:
		return "", fmt.Errorf("unsupported sqlite driver %q (use %q or %q)", driver, DriverModernc, DriverMattn)
	}
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			role          TEXT NOT NULL DEFAULT 'user',
			created_at    TEXT NOT NULL,

			CHECK (role IN ('user', 'admin'))
		);

		CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);

		CREATE TABLE IF NOT EXISTS recordings (
			id       TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL REFERENCES users(id),
			date     TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_recordings_owner ON recordings(owner_id, date);

		CREATE TABLE IF NOT EXISTS leads (
			id                TEXT PRIMARY KEY,
			recording_id      TEXT NOT NULL REFERENCES recordings(id) ON DELETE CASCADE,
			position          INTEGER NOT NULL,
			identifier        TEXT NOT NULL,
			number_of_samples INTEGER,
			signal            TEXT NOT NULL,

			UNIQUE (recording_id, position),
			CHECK (length(identifier) > 0),
			CHECK (number_of_samples IS NULL OR number_of_samples >= 0)
		);

		CREATE INDEX IF NOT EXISTS idx_leads_recording ON leads(recording_id, position);

		CREATE TABLE IF NOT EXISTS audit_log (
			audit_id    TEXT PRIMARY KEY,
			actor_id    TEXT NOT NULL,
			action      TEXT NOT NULL,
			target_type TEXT NOT NULL,
			target_id   TEXT NOT NULL,
			ts          TEXT NOT NULL,
			detail_json TEXT,

			CHECK (action IN (
				'create_user',
				'bootstrap_admin',
				'create_recording',
				'delete_recording'
			))
		);

		CREATE INDEX IF NOT EXISTS idx_audit_ts ON audit_log(ts DESC);
		CREATE INDEX IF NOT EXISTS idx_audit_actor ON audit_log(actor_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// isConstraintViolation checks if the error is a SQLite constraint violation.
// Both drivers report constraint failures with the same message text.
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "constraint failed")
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// nullInt converts an optional int into a value suitable for a nullable column.
func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
