package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/neurovault/neurovault-server/internal/domain"
	"github.com/neurovault/neurovault-server/internal/errors"
)

// recordingColumns is the ordered list of columns selected in recording
// queries. Must match the scan order in scanRecording.
const recordingColumns = `id, created_at, updated_at, patient_id, file_hash, file_path,
	start_date, channels, sampling_rate, duration, montage, notes`

func scanRecording(scanner interface{ Scan(dest ...any) error }) (*domain.Recording, error) {
	var r domain.Recording

	var (
		createdAt string
		updatedAt string
		startDate string
		montage   sql.NullString
		notes     sql.NullString
	)

	err := scanner.Scan(
		&r.ID, &createdAt, &updatedAt, &r.PatientID, &r.FileHash, &r.FilePath,
		&startDate, &r.Channels, &r.SamplingRate, &r.Duration, &montage, &notes,
	)
	if err != nil {
		return nil, err
	}

	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if r.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if r.StartDate, err = parseTime(startDate); err != nil {
		return nil, err
	}
	if montage.Valid {
		r.Montage = montage.String
	}
	if notes.Valid {
		r.Notes = notes.String
	}
	return &r, nil
}

// CreateRecording inserts a new recording. Duplicate file hashes and
// duplicate (patient, start date) pairs are conflicts.
func (s *Store) CreateRecording(ctx context.Context, r *domain.Recording) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO recordings (id, created_at, updated_at, patient_id, file_hash, file_path,
		                         start_date, channels, sampling_rate, duration, montage, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, formatTime(r.CreatedAt), formatTime(r.UpdatedAt), r.PatientID, r.FileHash, r.FilePath,
		formatTime(r.StartDate), r.Channels, r.SamplingRate, r.Duration,
		nullString(r.Montage), nullString(r.Notes),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return errors.AlreadyExistsf("recording %s already cataloged", r.FilePath)
		}
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return errors.NotFoundf("patient %s not found", r.PatientID)
		}
		return fmt.Errorf("insert recording: %w", err)
	}
	return nil
}

// GetRecording returns the recording with the given ID.
func (s *Store) GetRecording(ctx context.Context, id string) (*domain.Recording, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordingColumns+` FROM recordings WHERE id = ?`, id)
	r, err := scanRecording(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFoundf("recording %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get recording: %w", err)
	}
	return r, nil
}

// FindRecordingByHash returns the recording with the given file hash.
func (s *Store) FindRecordingByHash(ctx context.Context, hash string) (*domain.Recording, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordingColumns+` FROM recordings WHERE file_hash = ?`, hash)
	r, err := scanRecording(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFoundf("recording with hash %s not found", hash)
	}
	if err != nil {
		return nil, fmt.Errorf("find recording: %w", err)
	}
	return r, nil
}

// ListRecordings returns all recordings, newest first.
func (s *Store) ListRecordings(ctx context.Context) ([]*domain.Recording, error) {
	return s.queryRecordings(ctx,
		`SELECT `+recordingColumns+` FROM recordings ORDER BY start_date DESC`)
}

// ListRecordingsForPatient returns one patient's recordings, oldest first.
func (s *Store) ListRecordingsForPatient(ctx context.Context, patientID string) ([]*domain.Recording, error) {
	return s.queryRecordings(ctx,
		`SELECT `+recordingColumns+` FROM recordings WHERE patient_id = ? ORDER BY start_date`, patientID)
}

func (s *Store) queryRecordings(ctx context.Context, query string, args ...any) ([]*domain.Recording, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}
	defer rows.Close()

	var recordings []*domain.Recording
	for rows.Next() {
		r, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		recordings = append(recordings, r)
	}
	return recordings, rows.Err()
}

// UpdateRecording updates a recording's mutable fields.
func (s *Store) UpdateRecording(ctx context.Context, r *domain.Recording) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE recordings SET updated_at = ?, file_path = ?, montage = ?, notes = ? WHERE id = ?`,
		formatTime(r.UpdatedAt), r.FilePath, nullString(r.Montage), nullString(r.Notes), r.ID,
	)
	if err != nil {
		return fmt.Errorf("update recording: %w", err)
	}
	return requireRow(res, "recording", r.ID)
}

// DeleteRecording removes a recording and, via cascade, its segments.
func (s *Store) DeleteRecording(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM recordings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete recording: %w", err)
	}
	return requireRow(res, "recording", id)
}
