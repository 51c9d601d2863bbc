package domain

import "time"

// Recording is a cataloged EDF file.
// Recordings are unique by file hash and by (PatientID, StartDate).
type Recording struct {
	Entity
	PatientID    string    `json:"patient_id"`
	FileHash     string    `json:"file_hash"`
	FilePath     string    `json:"file_path"`
	StartDate    time.Time `json:"start_date"`
	Channels     int       `json:"channels"`
	SamplingRate float64   `json:"sampling_rate"`
	Duration     float64   `json:"duration"`
	Montage      string    `json:"montage,omitempty"`
	Notes        string    `json:"notes,omitempty"`
}

// Segment is one labeled time window of a recording, produced by the
// segmentation engine and persisted with a pointer to its payload file.
type Segment struct {
	Entity
	RecordingID string  `json:"recording_id"`
	Name        string  `json:"name"`
	StartTime   float64 `json:"start_time"`
	EndTime     float64 `json:"end_time"`
	LeftMarker  string  `json:"l_marker"`
	RightMarker string  `json:"r_marker"`
	FilePath    string  `json:"file_path,omitempty"`
	Notes       string  `json:"notes,omitempty"`
}

// SegmentDuration returns the segment length in seconds.
func (s *Segment) SegmentDuration() float64 {
	return s.EndTime - s.StartTime
}
