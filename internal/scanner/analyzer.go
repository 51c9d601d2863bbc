package scanner

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/neurovault/neurovault-server/internal/edf"
	"github.com/neurovault/neurovault-server/internal/errors"
)

// FileMetadata is what analysis extracts from one EDF file.
type FileMetadata struct {
	File       WalkResult
	Hash       string
	Patient    edf.Patient
	StartTime  time.Time
	SampleRate float64
	Duration   float64
	Channels   []string
	// Err marks files that could not be read; Corrupt refines it.
	Err     error
	Corrupt bool
}

// Analyzer extracts recording metadata from EDF files on a bounded worker
// pool.
type Analyzer struct {
	logger          *slog.Logger
	excludeChannels []string
}

// NewAnalyzer creates a new analyzer. excludeChannels lists signal
// channels to drop from every recording.
func NewAnalyzer(excludeChannels []string, logger *slog.Logger) *Analyzer {
	return &Analyzer{logger: logger, excludeChannels: excludeChannels}
}

// Analyze reads every file's header, hash and annotation metadata.
// Unreadable files are reported in their slot, not dropped, so callers can
// count and act on corruption.
func (a *Analyzer) Analyze(ctx context.Context, files []WalkResult, workers int) ([]FileMetadata, error) {
	if len(files) == 0 {
		return []FileMetadata{}, nil
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(files) {
		workers = len(files)
	}

	jobs := make(chan WalkResult, len(files))
	results := make(chan FileMetadata, len(files))

	for range workers {
		go func() {
			for file := range jobs {
				select {
				case <-ctx.Done():
					results <- FileMetadata{File: file, Err: ctx.Err()}
					continue
				default:
				}
				results <- a.analyzeOne(file)
			}
		}()
	}

	index := make(map[string]int, len(files))
	for i, file := range files {
		index[file.Path] = i
		jobs <- file
	}
	close(jobs)

	out := make([]FileMetadata, len(files))
	for range files {
		select {
		case meta := <-results:
			out[index[meta.File.Path]] = meta
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *Analyzer) analyzeOne(file WalkResult) FileMetadata {
	meta := FileMetadata{File: file}

	hash, err := edf.Hash(file.Path)
	if err != nil {
		meta.Err = err
		return meta
	}
	meta.Hash = hash

	rec, err := edf.Open(file.Path, edf.Options{ExcludeChannels: a.excludeChannels})
	if err != nil {
		meta.Err = err
		meta.Corrupt = errors.Is(err, errors.ErrCorruptFile)
		a.logger.Warn("unreadable edf file", "path", file.Path, "error", err)
		return meta
	}

	meta.Patient = rec.Patient()
	meta.StartTime = rec.StartTime()
	meta.SampleRate = rec.SampleRate()
	meta.Duration = rec.DurationSeconds()
	meta.Channels = rec.ChannelNames()
	return meta
}
