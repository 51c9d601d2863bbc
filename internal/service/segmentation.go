package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/neurovault/neurovault-server/internal/config"
	"github.com/neurovault/neurovault-server/internal/domain"
	"github.com/neurovault/neurovault-server/internal/edf"
	"github.com/neurovault/neurovault-server/internal/errors"
	"github.com/neurovault/neurovault-server/internal/id"
	"github.com/neurovault/neurovault-server/internal/segment"
	"github.com/neurovault/neurovault-server/internal/store"
	"github.com/neurovault/neurovault-server/internal/validation"
)

// SegmentationService runs the segmentation engine over cataloged
// recordings and persists the resulting segment map.
type SegmentationService struct {
	store           *store.Store
	logger          *slog.Logger
	validator       *validation.Validator
	defaults        config.SegmentationConfig
	excludeChannels []string
	// payloadDir is where cropped segment data is written, one
	// subdirectory per recording.
	payloadDir string
}

// NewSegmentationService creates a new segmentation service.
func NewSegmentationService(st *store.Store, defaults config.SegmentationConfig, excludeChannels []string, payloadDir string, logger *slog.Logger) *SegmentationService {
	return &SegmentationService{
		store:           st,
		logger:          logger,
		validator:       validation.New(),
		defaults:        defaults,
		excludeChannels: excludeChannels,
		payloadDir:      payloadDir,
	}
}

// SegmentRequest overrides the configured engine defaults for one run.
// Zero values fall back to the defaults.
type SegmentRequest struct {
	Mode        string  `json:"mode" validate:"omitempty,segmode"`
	MinDuration float64 `json:"min_duration" validate:"omitempty,gt=0"`
	Workers     int     `json:"workers" validate:"gte=0,lte=64"`
	ShortNames  *bool   `json:"short_names"`
}

// SegmentSummary reports one stored segment of a run.
type SegmentSummary struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	LeftMarker  string  `json:"l_marker"`
	RightMarker string  `json:"r_marker"`
	FilePath    string  `json:"file_path,omitempty"`
}

// RunSummary reports the outcome of one segmentation run.
type RunSummary struct {
	RecordingID    string           `json:"recording_id"`
	Mode           string           `json:"mode"`
	Segments       []SegmentSummary `json:"segments"`
	Reason         string           `json:"reason,omitempty"`
	EventsTotal    int              `json:"events_total"`
	EventsValid    int              `json:"events_valid"`
	EventsExcluded int              `json:"events_excluded"`
	DroppedShort   int              `json:"dropped_short"`
	CropFailures   int              `json:"crop_failures"`
}

// Segment runs the engine over one recording and replaces its stored
// segment map. An empty result is a valid outcome carrying a reason, not
// an error.
func (s *SegmentationService) Segment(ctx context.Context, recordingID string, req SegmentRequest) (*RunSummary, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	rec, err := s.store.GetRecording(ctx, recordingID)
	if err != nil {
		return nil, err
	}

	file, err := edf.Open(rec.FilePath, edf.Options{ExcludeChannels: s.excludeChannels})
	if err != nil {
		return nil, err
	}

	cfg := s.engineConfig(req)
	eng := segment.New(cfg, nil, s.logger)
	if err := eng.Load(file); err != nil {
		return nil, err
	}
	result, err := eng.Process(ctx)
	if err != nil {
		return nil, err
	}

	segments, err := s.persist(ctx, rec, result)
	if err != nil {
		return nil, err
	}

	summary := &RunSummary{
		RecordingID:    rec.ID,
		Mode:           string(cfg.Mode),
		Segments:       segments,
		Reason:         result.Stats.Reason,
		EventsTotal:    result.Stats.EventsTotal,
		EventsValid:    result.Stats.EventsValid,
		EventsExcluded: result.Stats.EventsExcluded,
		DroppedShort:   result.Stats.DroppedShort,
		CropFailures:   len(result.Failures),
	}
	s.logger.Info("segmentation run stored",
		"recording", rec.ID,
		"mode", cfg.Mode,
		"segments", len(segments),
		"dropped_short", summary.DroppedShort,
		"crop_failures", summary.CropFailures,
	)
	return summary, nil
}

// engineConfig merges request overrides into the configured defaults.
func (s *SegmentationService) engineConfig(req SegmentRequest) segment.Config {
	cfg := segment.Config{
		Mode:               segment.ParseMode(s.defaults.Mode),
		MinSegmentDuration: s.defaults.MinSegmentDuration,
		Workers:            s.defaults.Workers,
		ShortNames:         s.defaults.ShortNames,
	}
	if cfg.MinSegmentDuration <= 0 {
		cfg.MinSegmentDuration = segment.DefaultConfig().MinSegmentDuration
	}
	if req.Mode != "" {
		cfg.Mode = segment.ParseMode(req.Mode)
	}
	if req.MinDuration > 0 {
		cfg.MinSegmentDuration = req.MinDuration
	}
	if req.Workers > 0 {
		cfg.Workers = req.Workers
	}
	if req.ShortNames != nil {
		cfg.ShortNames = *req.ShortNames
	}
	return cfg
}

// persist writes every segment's payload CSV and replaces the stored
// segment map in one transaction. Rerunning segmentation clears the
// previous run's payload directory first.
func (s *SegmentationService) persist(ctx context.Context, rec *domain.Recording, result *segment.Result) ([]SegmentSummary, error) {
	dir := filepath.Join(s.payloadDir, rec.ID)
	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("clear payload dir: %w", err)
	}
	if result.Len() > 0 {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create payload dir: %w", err)
		}
	}

	stored := make([]*domain.Segment, 0, result.Len())
	summaries := make([]SegmentSummary, 0, result.Len())
	for _, seg := range result.Segments() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path, err := s.writePayload(dir, seg)
		if err != nil {
			return nil, err
		}

		segID, err := id.Generate("seg")
		if err != nil {
			return nil, err
		}
		d := &domain.Segment{
			RecordingID: rec.ID,
			Name:        seg.Name,
			StartTime:   seg.Start,
			EndTime:     seg.End,
			LeftMarker:  seg.Predecessor,
			RightMarker: seg.Successor,
			FilePath:    path,
		}
		d.ID = segID
		d.InitTimestamps()
		stored = append(stored, d)
		summaries = append(summaries, SegmentSummary{
			ID:          d.ID,
			Name:        d.Name,
			Start:       d.StartTime,
			End:         d.EndTime,
			LeftMarker:  d.LeftMarker,
			RightMarker: d.RightMarker,
			FilePath:    d.FilePath,
		})
	}

	if err := s.store.ReplaceSegments(ctx, rec.ID, stored); err != nil {
		return nil, err
	}
	return summaries, nil
}

// writePayload streams one segment's cropped channel data to CSV and
// returns the file path.
func (s *SegmentationService) writePayload(dir string, seg *segment.Segment) (string, error) {
	clip, ok := seg.Payload.(*edf.Clip)
	if !ok {
		return "", errors.Internal(fmt.Sprintf("segment %q carries no clip payload", seg.Name))
	}

	path := filepath.Join(dir, seg.Name+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create payload file: %w", err)
	}
	if err := clip.WriteCSV(f); err != nil {
		f.Close()
		return "", fmt.Errorf("write payload %q: %w", seg.Name, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}
