// Package scanner keeps the EDF library directory and the catalog in
// sync: it discovers files, extracts recording metadata on a worker pool,
// and upserts patients and recordings.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/neurovault/neurovault-server/internal/domain"
	"github.com/neurovault/neurovault-server/internal/errors"
	"github.com/neurovault/neurovault-server/internal/id"
	"github.com/neurovault/neurovault-server/internal/montage"
	"github.com/neurovault/neurovault-server/internal/normalize"
	"github.com/neurovault/neurovault-server/internal/store"
)

// Scanner orchestrates library scans.
type Scanner struct {
	store     *store.Store
	logger    *slog.Logger
	walker    *Walker
	analyzer  *Analyzer
	statePath string
}

// Config holds scanner construction settings.
type Config struct {
	// StatePath locates the yaml scan-state file for incremental scans.
	StatePath string
	// ExcludeChannels lists signal channels dropped from every recording.
	ExcludeChannels []string
}

// New creates a scanner.
func New(st *store.Store, cfg Config, logger *slog.Logger) *Scanner {
	return &Scanner{
		store:     st,
		logger:    logger,
		walker:    NewWalker(logger),
		analyzer:  NewAnalyzer(cfg.ExcludeChannels, logger),
		statePath: cfg.StatePath,
	}
}

// Options configures one scan run.
type Options struct {
	// Workers bounds the analysis pool; zero picks a default.
	Workers int
	// Force rescans files whose size and mtime are unchanged.
	Force bool
}

// Result summarizes one scan run.
type Result struct {
	StartedAt   time.Time
	CompletedAt time.Time
	Discovered  int
	Skipped     int
	Added       int
	Duplicates  int
	Corrupt     int
	Errors      int
	BytesAdded  int64
}

// Scan walks the library, analyzes new or changed files, and catalogs
// them. Per-file failures are counted, not fatal.
func (s *Scanner) Scan(ctx context.Context, libraryPath string, opts Options) (*Result, error) {
	if _, err := os.Stat(libraryPath); err != nil {
		return nil, fmt.Errorf("library path not accessible: %w", err)
	}

	state, err := LoadState(s.statePath)
	if err != nil {
		return nil, err
	}

	result := &Result{StartedAt: time.Now()}

	var pending []WalkResult
	seen := make(map[string]struct{})
	for file := range s.walker.Walk(ctx, libraryPath) {
		result.Discovered++
		seen[file.RelPath] = struct{}{}
		if !opts.Force && state.Unchanged(file) {
			result.Skipped++
			continue
		}
		pending = append(pending, file)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if removed := state.Forget(seen); len(removed) > 0 {
		s.logger.Info("dropped state for missing files", "count", len(removed))
	}

	metas, err := s.analyzer.Analyze(ctx, pending, opts.Workers)
	if err != nil {
		return nil, err
	}

	for _, meta := range metas {
		switch {
		case meta.Corrupt:
			result.Corrupt++
			continue
		case meta.Err != nil:
			result.Errors++
			continue
		}

		recID, err := s.catalog(ctx, meta)
		switch {
		case errors.Is(err, errors.ErrAlreadyExists):
			result.Duplicates++
			state.Record(meta.File, meta.Hash, "")
			continue
		case err != nil:
			result.Errors++
			s.logger.Error("catalog failed", "path", meta.File.Path, "error", err)
			continue
		}

		result.Added++
		result.BytesAdded += meta.File.Size
		state.Record(meta.File, meta.Hash, recID)
	}

	if err := state.Save(s.statePath); err != nil {
		return nil, err
	}

	result.CompletedAt = time.Now()
	s.logger.Info("scan complete",
		"duration", result.CompletedAt.Sub(result.StartedAt),
		"discovered", result.Discovered,
		"added", result.Added,
		"skipped", result.Skipped,
		"duplicates", result.Duplicates,
		"corrupt", result.Corrupt,
		"errors", result.Errors,
		"size_added", humanize.Bytes(uint64(result.BytesAdded)),
	)
	return result, nil
}

// catalog upserts the patient and inserts the recording for one analyzed
// file, returning the new recording ID.
func (s *Scanner) catalog(ctx context.Context, meta FileMetadata) (string, error) {
	patient, err := s.resolvePatient(ctx, meta)
	if err != nil {
		return "", err
	}

	rec := &domain.Recording{
		PatientID:    patient.ID,
		FileHash:     meta.Hash,
		FilePath:     meta.File.Path,
		StartDate:    meta.StartTime,
		Channels:     len(meta.Channels),
		SamplingRate: meta.SampleRate,
		Duration:     meta.Duration,
	}
	rec.ID = id.MustGenerate("rec")
	rec.InitTimestamps()

	if m, ok := montage.ForChannelCount(len(meta.Channels)); ok {
		rec.Montage = m.Name
	}

	if err := s.store.CreateRecording(ctx, rec); err != nil {
		return "", err
	}

	s.logger.Debug("recording cataloged",
		"id", rec.ID,
		"patient", patient.Name,
		"start", rec.StartDate,
		"duration", rec.Duration,
	)
	return rec.ID, nil
}

// resolvePatient finds the patient by (name, birthday) identity or
// creates one from the EDF header.
func (s *Scanner) resolvePatient(ctx context.Context, meta FileMetadata) (*domain.Patient, error) {
	name := normalize.TitleCase(meta.Patient.Name)
	if name == "" {
		name = "Unknown"
	}

	var birthday *time.Time
	if b, ok := meta.Patient.Birthday(); ok {
		birthday = &b
	}

	existing, err := s.store.FindPatientByIdentity(ctx, name, birthday)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}

	p := &domain.Patient{
		Name:     name,
		Birthday: birthday,
		Sex:      parseSex(meta.Patient.Sex),
	}
	p.ID = id.MustGenerate("pat")
	p.InitTimestamps()

	if err := s.store.CreatePatient(ctx, p); err != nil {
		// Lost a race with a concurrent scan worker; reread.
		if errors.Is(err, errors.ErrAlreadyExists) {
			return s.store.FindPatientByIdentity(ctx, name, birthday)
		}
		return nil, err
	}
	return p, nil
}

func parseSex(s string) domain.Sex {
	switch s {
	case "M", "m":
		return domain.SexMale
	case "F", "f":
		return domain.SexFemale
	default:
		return domain.SexUnknown
	}
}
