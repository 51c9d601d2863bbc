package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neurovault/neurovault-server/internal/scanner"
	"github.com/neurovault/neurovault-server/internal/service"
)

func (s *Server) registerLibraryRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "scanLibrary",
		Method:      http.MethodPost,
		Path:        "/api/v1/library/scan",
		Summary:     "Scan library",
		Description: "Walks the EDF archive and catalogs new or changed recordings",
		Tags:        []string{"Library"},
	}, s.handleScanLibrary)

	huma.Register(s.api, huma.Operation{
		OperationID: "renameLibraryFiles",
		Method:      http.MethodPost,
		Path:        "/api/v1/library/rename",
		Summary:     "Rename library files",
		Description: "Renames archive files to the canonical patient-and-date form",
		Tags:        []string{"Library"},
	}, s.handleRenameLibraryFiles)

	huma.Register(s.api, huma.Operation{
		OperationID: "segmentLibrary",
		Method:      http.MethodPost,
		Path:        "/api/v1/library/segment",
		Summary:     "Segment all recordings",
		Description: "Runs the segmentation engine over every cataloged recording, skipping failures",
		Tags:        []string{"Library"},
	}, s.handleSegmentLibrary)

	huma.Register(s.api, huma.Operation{
		OperationID: "findLibraryDuplicates",
		Method:      http.MethodGet,
		Path:        "/api/v1/library/duplicates",
		Summary:     "Find duplicates",
		Description: "Reports content-identical file groups without deleting anything",
		Tags:        []string{"Library"},
	}, s.handleFindLibraryDuplicates)

	huma.Register(s.api, huma.Operation{
		OperationID: "findSimilarStartTimes",
		Method:      http.MethodGet,
		Path:        "/api/v1/library/similar-start-times",
		Summary:     "Find similar start times",
		Description: "Reports files recorded within minutes of each other, a sign of split sessions",
		Tags:        []string{"Library"},
	}, s.handleFindSimilarStartTimes)

	huma.Register(s.api, huma.Operation{
		OperationID: "cleanupLibrary",
		Method:      http.MethodPost,
		Path:        "/api/v1/library/cleanup",
		Summary:     "Clean up library",
		Description: "Deletes redundant duplicate copies and removes corrupted files",
		Tags:        []string{"Library"},
	}, s.handleCleanupLibrary)

	huma.Register(s.api, huma.Operation{
		OperationID: "anonymizeLibrary",
		Method:      http.MethodPost,
		Path:        "/api/v1/library/anonymize",
		Summary:     "Anonymize library",
		Description: "Replaces patient names with random codes on disk and in the EDF headers",
		Tags:        []string{"Library"},
	}, s.handleAnonymizeLibrary)

	huma.Register(s.api, huma.Operation{
		OperationID: "writePatientTable",
		Method:      http.MethodPost,
		Path:        "/api/v1/library/patient-table",
		Summary:     "Write patient table",
		Description: "Writes the patient summary CSV into the archive directory",
		Tags:        []string{"Library"},
	}, s.handleWritePatientTable)
}

// === DTOs ===

type ScanLibraryInput struct {
	Force   bool `query:"force" doc:"Rescan files whose size and mtime are unchanged"`
	Workers int  `query:"workers" doc:"Analysis worker pool size"`
}

type ScanResultResponse struct {
	Discovered int   `json:"discovered" doc:"EDF files found"`
	Skipped    int   `json:"skipped" doc:"Unchanged files skipped"`
	Added      int   `json:"added" doc:"Recordings cataloged"`
	Duplicates int   `json:"duplicates" doc:"Files whose content is already cataloged"`
	Corrupt    int   `json:"corrupt" doc:"Files the parser rejected"`
	Errors     int   `json:"errors" doc:"Files that failed for other reasons"`
	BytesAdded int64 `json:"bytes_added" doc:"Total size of cataloged files"`
}

type ScanLibraryOutput struct {
	Body ScanResultResponse
}

type SegmentLibraryInput struct {
	Body struct {
		Mode        string  `json:"mode,omitempty" doc:"Segmentation mode: boundary, pairs, or grouped"`
		MinDuration float64 `json:"min_duration,omitempty" doc:"Shortest segment kept, in seconds"`
		Workers     int     `json:"workers,omitempty" doc:"Crop worker pool size"`
		ShortNames  *bool   `json:"short_names,omitempty" doc:"Use truncated-prefix segment names"`
	}
}

type BatchFailureResponse struct {
	RecordingID string `json:"recording_id" doc:"Recording ID"`
	FilePath    string `json:"file_path" doc:"EDF file path"`
	Error       string `json:"error" doc:"Failure description"`
}

type SegmentLibraryOutput struct {
	Body struct {
		Processed int                    `json:"processed" doc:"Recordings attempted"`
		Succeeded int                    `json:"succeeded" doc:"Recordings segmented"`
		Segments  int                    `json:"segments" doc:"Segments stored across the batch"`
		Failures  []BatchFailureResponse `json:"failures,omitempty" doc:"Recordings that failed"`
	}
}

type DuplicatesOutput struct {
	Body struct {
		Groups [][]string `json:"groups" doc:"Content-identical file groups"`
	}
}

type SimilarStartOutput struct {
	Body struct {
		Groups [][]string `json:"groups" doc:"File groups recorded within minutes of each other"`
	}
}

type CleanupOutput struct {
	Body struct {
		DeletedDuplicates int      `json:"deleted_duplicates" doc:"Redundant copies deleted"`
		ReclaimedBytes    int64    `json:"reclaimed_bytes" doc:"Bytes freed"`
		RemovedCorrupted  []string `json:"removed_corrupted" doc:"Corrupted files deleted"`
	}
}

type CountOutput struct {
	Body struct {
		Count int `json:"count" doc:"Number of files affected"`
	}
}

type PathOutput struct {
	Body struct {
		Path string `json:"path" doc:"Path of the written file"`
	}
}

// === Handlers ===

func (s *Server) handleScanLibrary(ctx context.Context, input *ScanLibraryInput) (*ScanLibraryOutput, error) {
	result, err := s.services.Library.Scan(ctx, scanner.Options{
		Force:   input.Force,
		Workers: input.Workers,
	})
	if err != nil {
		return nil, err
	}
	return &ScanLibraryOutput{Body: ScanResultResponse{
		Discovered: result.Discovered,
		Skipped:    result.Skipped,
		Added:      result.Added,
		Duplicates: result.Duplicates,
		Corrupt:    result.Corrupt,
		Errors:     result.Errors,
		BytesAdded: result.BytesAdded,
	}}, nil
}

func (s *Server) handleRenameLibraryFiles(ctx context.Context, _ *struct{}) (*CountOutput, error) {
	renamed, err := s.services.Library.RenameFiles(ctx)
	if err != nil {
		return nil, err
	}
	out := &CountOutput{}
	out.Body.Count = renamed
	return out, nil
}

func (s *Server) handleSegmentLibrary(ctx context.Context, input *SegmentLibraryInput) (*SegmentLibraryOutput, error) {
	summary, err := s.services.Library.SegmentAll(ctx, service.SegmentRequest{
		Mode:        input.Body.Mode,
		MinDuration: input.Body.MinDuration,
		Workers:     input.Body.Workers,
		ShortNames:  input.Body.ShortNames,
	})
	if err != nil {
		return nil, err
	}

	out := &SegmentLibraryOutput{}
	out.Body.Processed = summary.Processed
	out.Body.Succeeded = summary.Succeeded
	out.Body.Segments = summary.Segments
	out.Body.Failures = make([]BatchFailureResponse, len(summary.Failures))
	for i, f := range summary.Failures {
		out.Body.Failures[i] = BatchFailureResponse{
			RecordingID: f.RecordingID,
			FilePath:    f.FilePath,
			Error:       f.Error,
		}
	}
	return out, nil
}

func (s *Server) handleFindLibraryDuplicates(ctx context.Context, _ *struct{}) (*DuplicatesOutput, error) {
	report, err := s.services.Library.FindDuplicates(ctx)
	if err != nil {
		return nil, err
	}
	out := &DuplicatesOutput{}
	out.Body.Groups = report.Groups
	return out, nil
}

func (s *Server) handleFindSimilarStartTimes(ctx context.Context, _ *struct{}) (*SimilarStartOutput, error) {
	groups, err := s.services.Library.FindSimilarStartTimes(ctx)
	if err != nil {
		return nil, err
	}
	out := &SimilarStartOutput{}
	out.Body.Groups = groups
	return out, nil
}

func (s *Server) handleCleanupLibrary(ctx context.Context, _ *struct{}) (*CleanupOutput, error) {
	result, err := s.services.Library.Cleanup(ctx)
	if err != nil {
		return nil, err
	}
	out := &CleanupOutput{}
	out.Body.DeletedDuplicates = result.DeletedDuplicates
	out.Body.ReclaimedBytes = result.ReclaimedBytes
	out.Body.RemovedCorrupted = result.RemovedCorrupted
	return out, nil
}

func (s *Server) handleAnonymizeLibrary(ctx context.Context, _ *struct{}) (*CountOutput, error) {
	n, err := s.services.Library.Anonymize(ctx)
	if err != nil {
		return nil, err
	}
	out := &CountOutput{}
	out.Body.Count = n
	return out, nil
}

func (s *Server) handleWritePatientTable(ctx context.Context, _ *struct{}) (*PathOutput, error) {
	path, err := s.services.Library.WritePatientTable(ctx)
	if err != nil {
		return nil, err
	}
	out := &PathOutput{}
	out.Body.Path = path
	return out, nil
}
