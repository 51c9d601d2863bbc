package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neurovault/neurovault-server/internal/service"
)

func (s *Server) registerSegmentationRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "segmentRecording",
		Method:      http.MethodPost,
		Path:        "/api/v1/recordings/{id}/segment",
		Summary:     "Segment recording",
		Description: "Runs the segmentation engine over the recording and replaces its stored segment map",
		Tags:        []string{"Segments"},
	}, s.handleSegmentRecording)
}

// === DTOs ===

type SegmentRecordingInput struct {
	ID   string `path:"id" doc:"Recording ID"`
	Body struct {
		Mode        string  `json:"mode,omitempty" doc:"Segmentation mode: boundary, pairs, or grouped"`
		MinDuration float64 `json:"min_duration,omitempty" doc:"Shortest segment kept, in seconds"`
		Workers     int     `json:"workers,omitempty" doc:"Crop worker pool size"`
		ShortNames  *bool   `json:"short_names,omitempty" doc:"Use truncated-prefix segment names"`
	}
}

type RunSummaryResponse struct {
	RecordingID    string            `json:"recording_id" doc:"Recording ID"`
	Mode           string            `json:"mode" doc:"Mode the run used"`
	Segments       []SegmentResponse `json:"segments" doc:"Stored segments in timeline order"`
	Reason         string            `json:"reason,omitempty" doc:"Why the run produced no segments"`
	EventsTotal    int               `json:"events_total" doc:"Annotations in the recording"`
	EventsValid    int               `json:"events_valid" doc:"Events considered after filtering"`
	EventsExcluded int               `json:"events_excluded" doc:"Events dropped by the exclusion set"`
	DroppedShort   int               `json:"dropped_short" doc:"Windows below the duration floor"`
	CropFailures   int               `json:"crop_failures" doc:"Windows whose crop was rejected"`
}

type SegmentRecordingOutput struct {
	Body RunSummaryResponse
}

// === Handlers ===

func (s *Server) handleSegmentRecording(ctx context.Context, input *SegmentRecordingInput) (*SegmentRecordingOutput, error) {
	summary, err := s.services.Segmentation.Segment(ctx, input.ID, service.SegmentRequest{
		Mode:        input.Body.Mode,
		MinDuration: input.Body.MinDuration,
		Workers:     input.Body.Workers,
		ShortNames:  input.Body.ShortNames,
	})
	if err != nil {
		return nil, err
	}

	out := &SegmentRecordingOutput{}
	out.Body = RunSummaryResponse{
		RecordingID:    summary.RecordingID,
		Mode:           summary.Mode,
		Reason:         summary.Reason,
		EventsTotal:    summary.EventsTotal,
		EventsValid:    summary.EventsValid,
		EventsExcluded: summary.EventsExcluded,
		DroppedShort:   summary.DroppedShort,
		CropFailures:   summary.CropFailures,
	}
	out.Body.Segments = make([]SegmentResponse, len(summary.Segments))
	for i, seg := range summary.Segments {
		out.Body.Segments[i] = SegmentResponse{
			ID:          seg.ID,
			Name:        seg.Name,
			StartTime:   seg.Start,
			EndTime:     seg.End,
			LeftMarker:  seg.LeftMarker,
			RightMarker: seg.RightMarker,
			FilePath:    seg.FilePath,
		}
	}
	return out, nil
}
