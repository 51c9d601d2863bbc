package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neurovault/neurovault-server/internal/domain"
	"github.com/neurovault/neurovault-server/internal/service"
)

func (s *Server) registerRecordingRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listRecordings",
		Method:      http.MethodGet,
		Path:        "/api/v1/recordings",
		Summary:     "List recordings",
		Description: "Returns all cataloged recordings, newest first",
		Tags:        []string{"Recordings"},
	}, s.handleListRecordings)

	huma.Register(s.api, huma.Operation{
		OperationID: "getRecording",
		Method:      http.MethodGet,
		Path:        "/api/v1/recordings/{id}",
		Summary:     "Get recording",
		Tags:        []string{"Recordings"},
	}, s.handleGetRecording)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateRecording",
		Method:      http.MethodPatch,
		Path:        "/api/v1/recordings/{id}",
		Summary:     "Update recording",
		Description: "Updates montage and notes; file-derived fields are read-only",
		Tags:        []string{"Recordings"},
	}, s.handleUpdateRecording)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteRecording",
		Method:      http.MethodDelete,
		Path:        "/api/v1/recordings/{id}",
		Summary:     "Delete recording",
		Description: "Removes the catalog entry and segment payloads; the EDF file stays on disk",
		Tags:        []string{"Recordings"},
	}, s.handleDeleteRecording)

	huma.Register(s.api, huma.Operation{
		OperationID: "getRecordingEvents",
		Method:      http.MethodGet,
		Path:        "/api/v1/recordings/{id}/events",
		Summary:     "Get recording events",
		Description: "Reads the annotation timeline from the EDF file",
		Tags:        []string{"Recordings"},
	}, s.handleGetRecordingEvents)

	huma.Register(s.api, huma.Operation{
		OperationID: "listRecordingSegments",
		Method:      http.MethodGet,
		Path:        "/api/v1/recordings/{id}/segments",
		Summary:     "List segments",
		Description: "Returns the stored segment map in timeline order",
		Tags:        []string{"Segments"},
	}, s.handleListRecordingSegments)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteRecordingSegments",
		Method:      http.MethodDelete,
		Path:        "/api/v1/recordings/{id}/segments",
		Summary:     "Delete segments",
		Description: "Clears the stored segment map and payload files; the recording stays cataloged",
		Tags:        []string{"Segments"},
	}, s.handleDeleteRecordingSegments)
}

// === DTOs ===

type RecordingResponse struct {
	ID           string    `json:"id" doc:"Recording ID"`
	PatientID    string    `json:"patient_id" doc:"Patient ID"`
	FileHash     string    `json:"file_hash" doc:"Content hash of the EDF file"`
	FilePath     string    `json:"file_path" doc:"Path of the EDF file"`
	StartDate    time.Time `json:"start_date" doc:"Recording start"`
	Channels     int       `json:"channels" doc:"Signal channel count"`
	SamplingRate float64   `json:"sampling_rate" doc:"Samples per second"`
	Duration     float64   `json:"duration" doc:"Recording length in seconds"`
	Montage      string    `json:"montage,omitempty" doc:"Associated montage name"`
	Notes        string    `json:"notes,omitempty" doc:"Free-form notes"`
	CreatedAt    time.Time `json:"created_at" doc:"Catalog time"`
	UpdatedAt    time.Time `json:"updated_at" doc:"Last update time"`
}

type ListRecordingsOutput struct {
	Body struct {
		Recordings []RecordingResponse `json:"recordings" doc:"List of recordings"`
	}
}

type GetRecordingInput struct {
	ID string `path:"id" doc:"Recording ID"`
}

type RecordingOutput struct {
	Body RecordingResponse
}

type UpdateRecordingInput struct {
	ID   string `path:"id" doc:"Recording ID"`
	Body struct {
		Montage *string `json:"montage,omitempty" doc:"Montage name"`
		Notes   *string `json:"notes,omitempty" doc:"Free-form notes"`
	}
}

type AnnotationResponse struct {
	Label    string  `json:"label" doc:"Raw annotation label"`
	Onset    float64 `json:"onset" doc:"Seconds from recording start"`
	Duration float64 `json:"duration" doc:"Annotation duration in seconds"`
}

type RecordingEventsOutput struct {
	Body struct {
		Annotations []AnnotationResponse `json:"annotations" doc:"Annotation entries in file order"`
		CodeTable   map[string]int       `json:"code_table" doc:"Label to event code mapping"`
	}
}

type SegmentResponse struct {
	ID          string  `json:"id" doc:"Segment ID"`
	Name        string  `json:"name" doc:"Unique segment name"`
	StartTime   float64 `json:"start_time" doc:"Window start in seconds"`
	EndTime     float64 `json:"end_time" doc:"Window end in seconds"`
	LeftMarker  string  `json:"l_marker" doc:"Event opening the window"`
	RightMarker string  `json:"r_marker" doc:"Event closing the window"`
	FilePath    string  `json:"file_path,omitempty" doc:"Payload CSV path"`
}

type ListSegmentsOutput struct {
	Body struct {
		Segments []SegmentResponse `json:"segments" doc:"Segments in timeline order"`
	}
}

// === Handlers ===

func (s *Server) handleListRecordings(ctx context.Context, _ *struct{}) (*ListRecordingsOutput, error) {
	recordings, err := s.services.Recording.ListRecordings(ctx)
	if err != nil {
		return nil, err
	}
	return mapRecordingList(recordings), nil
}

func (s *Server) handleGetRecording(ctx context.Context, input *GetRecordingInput) (*RecordingOutput, error) {
	rec, err := s.services.Recording.GetRecording(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &RecordingOutput{Body: mapRecordingResponse(rec)}, nil
}

func (s *Server) handleUpdateRecording(ctx context.Context, input *UpdateRecordingInput) (*RecordingOutput, error) {
	rec, err := s.services.Recording.UpdateRecording(ctx, input.ID, service.UpdateRecordingRequest{
		Montage: input.Body.Montage,
		Notes:   input.Body.Notes,
	})
	if err != nil {
		return nil, err
	}
	return &RecordingOutput{Body: mapRecordingResponse(rec)}, nil
}

func (s *Server) handleDeleteRecording(ctx context.Context, input *GetRecordingInput) (*MessageOutput, error) {
	if err := s.services.Recording.DeleteRecording(ctx, input.ID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Recording deleted"}}, nil
}

func (s *Server) handleDeleteRecordingSegments(ctx context.Context, input *GetRecordingInput) (*MessageOutput, error) {
	if err := s.services.Recording.DeleteSegments(ctx, input.ID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Segments deleted"}}, nil
}

func (s *Server) handleGetRecordingEvents(ctx context.Context, input *GetRecordingInput) (*RecordingEventsOutput, error) {
	events, err := s.services.Recording.GetRecordingEvents(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	out := &RecordingEventsOutput{}
	out.Body.Annotations = make([]AnnotationResponse, len(events.Annotations))
	for i, a := range events.Annotations {
		out.Body.Annotations[i] = AnnotationResponse{Label: a.Label, Onset: a.Onset, Duration: a.Duration}
	}
	out.Body.CodeTable = events.CodeTable
	return out, nil
}

func (s *Server) handleListRecordingSegments(ctx context.Context, input *GetRecordingInput) (*ListSegmentsOutput, error) {
	segments, err := s.services.Recording.ListSegments(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	out := &ListSegmentsOutput{}
	out.Body.Segments = make([]SegmentResponse, len(segments))
	for i, seg := range segments {
		out.Body.Segments[i] = mapSegmentResponse(seg)
	}
	return out, nil
}

// === Mappers ===

func mapRecordingResponse(r *domain.Recording) RecordingResponse {
	return RecordingResponse{
		ID:           r.ID,
		PatientID:    r.PatientID,
		FileHash:     r.FileHash,
		FilePath:     r.FilePath,
		StartDate:    r.StartDate,
		Channels:     r.Channels,
		SamplingRate: r.SamplingRate,
		Duration:     r.Duration,
		Montage:      r.Montage,
		Notes:        r.Notes,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func mapRecordingList(recordings []*domain.Recording) *ListRecordingsOutput {
	out := &ListRecordingsOutput{}
	out.Body.Recordings = make([]RecordingResponse, len(recordings))
	for i, r := range recordings {
		out.Body.Recordings[i] = mapRecordingResponse(r)
	}
	return out
}

func mapSegmentResponse(seg *domain.Segment) SegmentResponse {
	return SegmentResponse{
		ID:          seg.ID,
		Name:        seg.Name,
		StartTime:   seg.StartTime,
		EndTime:     seg.EndTime,
		LeftMarker:  seg.LeftMarker,
		RightMarker: seg.RightMarker,
		FilePath:    seg.FilePath,
	}
}
