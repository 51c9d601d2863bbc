package api

import "github.com/neurovault/neurovault-server/internal/service"

// Services groups the business logic services used by the API server.
type Services struct {
	Patient      *service.PatientService
	Recording    *service.RecordingService
	Segmentation *service.SegmentationService
	Library      *service.LibraryService
	Catalog      *service.CatalogService
}
