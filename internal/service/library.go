package service

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/neurovault/neurovault-server/internal/errors"
	"github.com/neurovault/neurovault-server/internal/scanner"
)

// LibraryService runs scans and maintenance over the EDF archive
// directory. Only one scan or maintenance pass runs at a time.
type LibraryService struct {
	scanner      *scanner.Scanner
	housekeeper  *scanner.Housekeeper
	segmentation *SegmentationService
	logger       *slog.Logger
	libraryPath  string

	mu      sync.Mutex
	running bool
}

// NewLibraryService creates a new library service.
func NewLibraryService(sc *scanner.Scanner, hk *scanner.Housekeeper, seg *SegmentationService, libraryPath string, logger *slog.Logger) *LibraryService {
	return &LibraryService{
		scanner:      sc,
		housekeeper:  hk,
		segmentation: seg,
		logger:       logger,
		libraryPath:  libraryPath,
	}
}

// acquire marks the library busy, or fails when another pass is running.
func (s *LibraryService) acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.Conflict("a library operation is already running")
	}
	s.running = true
	return nil
}

func (s *LibraryService) release() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// Scan walks the archive and catalogs new or changed recordings.
func (s *LibraryService) Scan(ctx context.Context, opts scanner.Options) (*scanner.Result, error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()
	return s.scanner.Scan(ctx, s.libraryPath, opts)
}

// RenameFiles renames archive files to the canonical patient-and-date form.
func (s *LibraryService) RenameFiles(ctx context.Context) (int, error) {
	if err := s.acquire(); err != nil {
		return 0, err
	}
	defer s.release()
	return s.housekeeper.RenameFiles(ctx, s.libraryPath)
}

// DuplicateReport lists content-identical file groups in the archive.
type DuplicateReport struct {
	Groups [][]string `json:"groups"`
}

// FindDuplicates reports content-identical files without deleting anything.
func (s *LibraryService) FindDuplicates(ctx context.Context) (*DuplicateReport, error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()

	byHash, err := s.housekeeper.FindDuplicates(ctx, s.libraryPath)
	if err != nil {
		return nil, err
	}
	report := &DuplicateReport{Groups: make([][]string, 0, len(byHash))}
	for _, paths := range byHash {
		report.Groups = append(report.Groups, paths)
	}
	return report, nil
}

// FindSimilarStartTimes reports groups of files recorded within minutes
// of each other, without touching anything.
func (s *LibraryService) FindSimilarStartTimes(ctx context.Context) ([][]string, error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()
	return s.housekeeper.FindSimilarStartTimes(ctx, s.libraryPath)
}

// CleanupResult summarizes a destructive maintenance pass.
type CleanupResult struct {
	DeletedDuplicates int      `json:"deleted_duplicates"`
	ReclaimedBytes    int64    `json:"reclaimed_bytes"`
	RemovedCorrupted  []string `json:"removed_corrupted"`
}

// Cleanup deletes redundant copies of duplicated files and removes files
// the EDF parser rejects as corrupt.
func (s *LibraryService) Cleanup(ctx context.Context) (*CleanupResult, error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()

	byHash, err := s.housekeeper.FindDuplicates(ctx, s.libraryPath)
	if err != nil {
		return nil, err
	}
	deleted, reclaimed := s.housekeeper.DeleteDuplicates(byHash)

	removed, err := s.housekeeper.RemoveCorrupted(ctx, s.libraryPath)
	if err != nil {
		return nil, err
	}

	return &CleanupResult{
		DeletedDuplicates: deleted,
		ReclaimedBytes:    reclaimed,
		RemovedCorrupted:  removed,
	}, nil
}

// Anonymize replaces patient names in the archive with random codes, on
// disk and in the headers, and returns the number of files rewritten.
// The catalog is not touched; rescan afterwards to pick up the new identities.
func (s *LibraryService) Anonymize(ctx context.Context) (int, error) {
	if err := s.acquire(); err != nil {
		return 0, err
	}
	defer s.release()
	return s.housekeeper.Anonymize(ctx, s.libraryPath)
}

// WritePatientTable writes the patient summary CSV into the archive
// directory and returns its path.
func (s *LibraryService) WritePatientTable(ctx context.Context) (string, error) {
	if err := s.acquire(); err != nil {
		return "", err
	}
	defer s.release()

	path := filepath.Join(s.libraryPath, "patient_table.csv")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := s.housekeeper.WritePatientTable(ctx, s.libraryPath, f); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	s.logger.Info("patient table written", "path", path)
	return path, nil
}

// BatchFailure reports one recording that failed during a batch run.
type BatchFailure struct {
	RecordingID string `json:"recording_id"`
	FilePath    string `json:"file_path"`
	Error       string `json:"error"`
}

// BatchSummary reports the outcome of a batch segmentation run.
type BatchSummary struct {
	Processed int            `json:"processed"`
	Succeeded int            `json:"succeeded"`
	Segments  int            `json:"segments"`
	Failures  []BatchFailure `json:"failures,omitempty"`
}

// SegmentAll runs the segmentation engine over every cataloged recording
// with a shared set of overrides. A recording that fails is reported and
// skipped; the batch carries on.
func (s *LibraryService) SegmentAll(ctx context.Context, req SegmentRequest) (*BatchSummary, error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()

	recordings, err := s.segmentation.store.ListRecordings(ctx)
	if err != nil {
		return nil, err
	}

	summary := &BatchSummary{}
	for _, rec := range recordings {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		summary.Processed++

		run, err := s.segmentation.Segment(ctx, rec.ID, req)
		if err != nil {
			s.logger.Warn("batch segmentation: recording failed",
				"recording", rec.ID, "path", rec.FilePath, "error", err)
			summary.Failures = append(summary.Failures, BatchFailure{
				RecordingID: rec.ID,
				FilePath:    rec.FilePath,
				Error:       err.Error(),
			})
			continue
		}
		summary.Succeeded++
		summary.Segments += len(run.Segments)
	}

	s.logger.Info("batch segmentation finished",
		"processed", summary.Processed,
		"succeeded", summary.Succeeded,
		"segments", summary.Segments,
		"failed", len(summary.Failures),
	)
	return summary, nil
}
