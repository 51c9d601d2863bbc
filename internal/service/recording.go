package service

import (
	"context"
	"log/slog"
	"os"
	"slices"

	"github.com/neurovault/neurovault-server/internal/domain"
	"github.com/neurovault/neurovault-server/internal/edf"
	"github.com/neurovault/neurovault-server/internal/errors"
	"github.com/neurovault/neurovault-server/internal/montage"
	"github.com/neurovault/neurovault-server/internal/store"
	"github.com/neurovault/neurovault-server/internal/validation"
)

// RecordingService orchestrates recording operations.
type RecordingService struct {
	store           *store.Store
	logger          *slog.Logger
	validator       *validation.Validator
	excludeChannels []string
}

// NewRecordingService creates a new recording service.
func NewRecordingService(st *store.Store, excludeChannels []string, logger *slog.Logger) *RecordingService {
	return &RecordingService{
		store:           st,
		logger:          logger,
		validator:       validation.New(),
		excludeChannels: excludeChannels,
	}
}

// ListRecordings returns all recordings, newest first.
func (s *RecordingService) ListRecordings(ctx context.Context) ([]*domain.Recording, error) {
	return s.store.ListRecordings(ctx)
}

// ListRecordingsForPatient returns a patient's recordings in chronological order.
func (s *RecordingService) ListRecordingsForPatient(ctx context.Context, patientID string) ([]*domain.Recording, error) {
	return s.store.ListRecordingsForPatient(ctx, patientID)
}

// GetRecording returns a single recording.
func (s *RecordingService) GetRecording(ctx context.Context, recordingID string) (*domain.Recording, error) {
	return s.store.GetRecording(ctx, recordingID)
}

// UpdateRecordingRequest contains the mutable recording fields.
type UpdateRecordingRequest struct {
	Montage *string `json:"montage"`
	Notes   *string `json:"notes" validate:"omitempty,max=4000"`
}

// UpdateRecording applies a partial update to a recording's annotations.
// File-derived fields are owned by the scanner and cannot be edited.
func (s *RecordingService) UpdateRecording(ctx context.Context, recordingID string, req UpdateRecordingRequest) (*domain.Recording, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	rec, err := s.store.GetRecording(ctx, recordingID)
	if err != nil {
		return nil, err
	}

	if req.Montage != nil {
		if *req.Montage != "" && !slices.Contains(montage.Names(), *req.Montage) {
			return nil, errors.Validationf("unknown montage %q, expected one of %v", *req.Montage, montage.Names())
		}
		rec.Montage = *req.Montage
	}
	if req.Notes != nil {
		rec.Notes = *req.Notes
	}

	rec.Touch()
	if err := s.store.UpdateRecording(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// DeleteRecording removes a recording from the catalog. The EDF file on
// disk is left alone; segment payload files are deleted.
func (s *RecordingService) DeleteRecording(ctx context.Context, recordingID string) error {
	segments, err := s.store.ListSegments(ctx, recordingID)
	if err != nil {
		return err
	}

	if err := s.store.DeleteRecording(ctx, recordingID); err != nil {
		return err
	}

	for _, seg := range segments {
		if seg.FilePath == "" {
			continue
		}
		if err := os.Remove(seg.FilePath); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("could not remove segment payload", "path", seg.FilePath, "error", err)
		}
	}

	s.logger.Info("recording deleted", "id", recordingID, "segments", len(segments))
	return nil
}

// RecordingEvents is the annotation timeline of a recording file.
type RecordingEvents struct {
	Annotations []edf.Annotation `json:"annotations"`
	CodeTable   map[string]int   `json:"code_table"`
}

// GetRecordingEvents reads the annotation stream from the recording's
// file on disk.
func (s *RecordingService) GetRecordingEvents(ctx context.Context, recordingID string) (*RecordingEvents, error) {
	rec, err := s.store.GetRecording(ctx, recordingID)
	if err != nil {
		return nil, err
	}

	file, err := edf.Open(rec.FilePath, edf.Options{ExcludeChannels: s.excludeChannels})
	if err != nil {
		return nil, err
	}
	return &RecordingEvents{
		Annotations: file.Annotations(),
		CodeTable:   file.CodeTable(),
	}, nil
}

// ListSegments returns a recording's stored segments in timeline order.
func (s *RecordingService) ListSegments(ctx context.Context, recordingID string) ([]*domain.Segment, error) {
	if _, err := s.store.GetRecording(ctx, recordingID); err != nil {
		return nil, err
	}
	return s.store.ListSegments(ctx, recordingID)
}

// DeleteSegments clears a recording's stored segment map and removes the
// payload files. The recording itself stays cataloged.
func (s *RecordingService) DeleteSegments(ctx context.Context, recordingID string) error {
	if _, err := s.store.GetRecording(ctx, recordingID); err != nil {
		return err
	}
	segments, err := s.store.ListSegments(ctx, recordingID)
	if err != nil {
		return err
	}

	if err := s.store.DeleteSegmentsForRecording(ctx, recordingID); err != nil {
		return err
	}
	for _, seg := range segments {
		if seg.FilePath == "" {
			continue
		}
		if err := os.Remove(seg.FilePath); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("could not remove segment payload", "path", seg.FilePath, "error", err)
		}
	}

	s.logger.Info("segments cleared", "recording", recordingID, "segments", len(segments))
	return nil
}

// GetSegment returns a single stored segment.
func (s *RecordingService) GetSegment(ctx context.Context, segmentID string) (*domain.Segment, error) {
	return s.store.GetSegment(ctx, segmentID)
}
