// ABOUTME: Recording and lead store methods
// ABOUTME: Recordings are written atomically with their leads and always read by owner

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// CreateRecording inserts the recording and its leads in a single transaction.
// If any insert fails, nothing is written. Lead IDs and RecordingID must be set
// by the caller; the recording's Leads are stored in slice order.
func (s *SQLiteStore) CreateRecording(ctx context.Context, rec *Recording) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO recordings (id, owner_id, date) VALUES (?, ?, ?)`,
		rec.ID,
		rec.OwnerID,
		rec.Date.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting recording: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO leads (id, recording_id, position, identifier, number_of_samples, signal)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing lead insert: %w", err)
	}
	defer stmt.Close()

	for i, lead := range rec.Leads {
		signal, err := encodeSignal(lead.Signal)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			lead.ID,
			rec.ID,
			i,
			lead.Identifier,
			nullInt(lead.NumberOfSamples),
			signal,
		); err != nil {
			if isConstraintViolation(err) {
				return fmt.Errorf("inserting lead %d (%q): constraint violation: %w", i, lead.Identifier, err)
			}
			return fmt.Errorf("inserting lead %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing recording: %w", err)
	}

	s.logger.Debug("created recording", "id", rec.ID, "owner_id", rec.OwnerID, "leads", len(rec.Leads))
	return nil
}

// GetRecording retrieves a recording with its leads.
// Returns ErrNotFound if the id does not exist or belongs to another owner.
func (s *SQLiteStore) GetRecording(ctx context.Context, ownerID, id string) (*Recording, error) {
	var rec Recording
	var dateStr string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, date FROM recordings WHERE id = ? AND owner_id = ?`,
		id, ownerID,
	).Scan(&rec.ID, &rec.OwnerID, &dateStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying recording: %w", err)
	}

	rec.Date, err = time.Parse(time.RFC3339Nano, dateStr)
	if err != nil {
		return nil, fmt.Errorf("parsing date: %w", err)
	}

	leads, err := s.queryLeads(ctx, `
		SELECT l.id, l.recording_id, l.identifier, l.number_of_samples, l.signal
		FROM leads l
		WHERE l.recording_id = ?
		ORDER BY l.position
	`, rec.ID)
	if err != nil {
		return nil, err
	}
	rec.Leads = leads[rec.ID]
	if rec.Leads == nil {
		rec.Leads = []Lead{}
	}

	return &rec, nil
}

// ListRecordings returns every recording owned by ownerID, oldest first.
func (s *SQLiteStore) ListRecordings(ctx context.Context, ownerID string) ([]*Recording, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, date FROM recordings WHERE owner_id = ? ORDER BY date, id`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying recordings: %w", err)
	}

	recordings := []*Recording{}
	for rows.Next() {
		var rec Recording
		var dateStr string
		if err := rows.Scan(&rec.ID, &rec.OwnerID, &dateStr); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scanning recording: %w", err)
		}
		rec.Date, err = time.Parse(time.RFC3339Nano, dateStr)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("parsing date: %w", err)
		}
		recordings = append(recordings, &rec)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterating recordings: %w", err)
	}
	// Release the connection before the lead query; in-memory stores have only one.
	_ = rows.Close()

	if len(recordings) == 0 {
		return recordings, nil
	}

	leads, err := s.queryLeads(ctx, `
		SELECT l.id, l.recording_id, l.identifier, l.number_of_samples, l.signal
		FROM leads l
		JOIN recordings r ON r.id = l.recording_id
		WHERE r.owner_id = ?
		ORDER BY l.recording_id, l.position
	`, ownerID)
	if err != nil {
		return nil, err
	}

	for _, rec := range recordings {
		rec.Leads = leads[rec.ID]
		if rec.Leads == nil {
			rec.Leads = []Lead{}
		}
	}

	return recordings, nil
}

// DeleteRecording removes a recording; its leads are removed by cascade.
// Returns ErrNotFound if the id does not exist or belongs to another owner.
func (s *SQLiteStore) DeleteRecording(ctx context.Context, ownerID, id string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM recordings WHERE id = ? AND owner_id = ?`,
		id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("deleting recording: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Info("deleted recording", "id", id, "owner_id", ownerID)
	return nil
}

// queryLeads runs a lead query and groups the results by recording ID,
// preserving row order within each group.
func (s *SQLiteStore) queryLeads(ctx context.Context, query string, args ...any) (map[string][]Lead, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying leads: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string][]Lead)
	for rows.Next() {
		var lead Lead
		var samples sql.NullInt64
		var signal string

		if err := rows.Scan(&lead.ID, &lead.RecordingID, &lead.Identifier, &samples, &signal); err != nil {
			return nil, fmt.Errorf("scanning lead: %w", err)
		}
		if samples.Valid {
			n := int(samples.Int64)
			lead.NumberOfSamples = &n
		}
		lead.Signal, err = decodeSignal(signal)
		if err != nil {
			return nil, err
		}
		result[lead.RecordingID] = append(result[lead.RecordingID], lead)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating leads: %w", err)
	}
	return result, nil
}

// encodeSignal stores samples as a JSON array; a nil signal becomes [].
func encodeSignal(signal []int) (string, error) {
	if signal == nil {
		signal = []int{}
	}
	data, err := json.Marshal(signal)
	if err != nil {
		return "", fmt.Errorf("encoding signal: %w", err)
	}
	return string(data), nil
}

func decodeSignal(s string) ([]int, error) {
	signal := []int{}
	if err := json.Unmarshal([]byte(s), &signal); err != nil {
		return nil, fmt.Errorf("decoding signal: %w", err)
	}
	return signal, nil
}
