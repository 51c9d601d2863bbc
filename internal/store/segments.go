package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/neurovault/neurovault-server/internal/domain"
	"github.com/neurovault/neurovault-server/internal/errors"
)

const segmentColumns = `id, created_at, updated_at, recording_id, name, start_time, end_time,
	l_marker, r_marker, file_path, notes`

func scanSegment(scanner interface{ Scan(dest ...any) error }) (*domain.Segment, error) {
	var seg domain.Segment

	var (
		createdAt string
		updatedAt string
		filePath  sql.NullString
		notes     sql.NullString
	)

	err := scanner.Scan(
		&seg.ID, &createdAt, &updatedAt, &seg.RecordingID, &seg.Name,
		&seg.StartTime, &seg.EndTime, &seg.LeftMarker, &seg.RightMarker,
		&filePath, &notes,
	)
	if err != nil {
		return nil, err
	}

	if seg.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if seg.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if filePath.Valid {
		seg.FilePath = filePath.String
	}
	if notes.Valid {
		seg.Notes = notes.String
	}
	return &seg, nil
}

// ReplaceSegments atomically replaces a recording's segments with the
// given set. Re-running segmentation overwrites the previous result
// rather than accumulating duplicates.
func (s *Store) ReplaceSegments(ctx context.Context, recordingID string, segments []*domain.Segment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM segments WHERE recording_id = ?`, recordingID); err != nil {
		return fmt.Errorf("clear segments: %w", err)
	}

	for _, seg := range segments {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO segments (id, created_at, updated_at, recording_id, name, start_time, end_time,
			                       l_marker, r_marker, file_path, notes)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			seg.ID, formatTime(seg.CreatedAt), formatTime(seg.UpdatedAt), recordingID, seg.Name,
			seg.StartTime, seg.EndTime, seg.LeftMarker, seg.RightMarker,
			nullString(seg.FilePath), nullString(seg.Notes),
		)
		if err != nil {
			return fmt.Errorf("insert segment %q: %w", seg.Name, err)
		}
	}
	return tx.Commit()
}

// ListSegments returns a recording's segments ordered by start time.
func (s *Store) ListSegments(ctx context.Context, recordingID string) ([]*domain.Segment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+segmentColumns+` FROM segments WHERE recording_id = ? ORDER BY start_time`, recordingID)
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	defer rows.Close()

	var segments []*domain.Segment
	for rows.Next() {
		seg, err := scanSegment(rows)
		if err != nil {
			return nil, err
		}
		segments = append(segments, seg)
	}
	return segments, rows.Err()
}

// GetSegment returns the segment with the given ID.
func (s *Store) GetSegment(ctx context.Context, id string) (*domain.Segment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+segmentColumns+` FROM segments WHERE id = ?`, id)
	seg, err := scanSegment(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFoundf("segment %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get segment: %w", err)
	}
	return seg, nil
}

// DeleteSegmentsForRecording removes all segments of a recording.
func (s *Store) DeleteSegmentsForRecording(ctx context.Context, recordingID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM segments WHERE recording_id = ?`, recordingID)
	if err != nil {
		return fmt.Errorf("delete segments: %w", err)
	}
	return nil
}
