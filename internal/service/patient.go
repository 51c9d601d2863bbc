// Package service orchestrates catalog operations on top of the store,
// the EDF reader, and the segmentation engine.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/neurovault/neurovault-server/internal/domain"
	"github.com/neurovault/neurovault-server/internal/errors"
	"github.com/neurovault/neurovault-server/internal/id"
	"github.com/neurovault/neurovault-server/internal/normalize"
	"github.com/neurovault/neurovault-server/internal/store"
	"github.com/neurovault/neurovault-server/internal/validation"
)

// birthdayLayout is the wire format for patient birthdays.
const birthdayLayout = "2006-01-02"

// PatientService orchestrates patient and diagnosis operations.
type PatientService struct {
	store     *store.Store
	logger    *slog.Logger
	validator *validation.Validator
}

// NewPatientService creates a new patient service.
func NewPatientService(st *store.Store, logger *slog.Logger) *PatientService {
	return &PatientService{
		store:     st,
		logger:    logger,
		validator: validation.New(),
	}
}

// ListPatients returns all patients ordered by name.
func (s *PatientService) ListPatients(ctx context.Context) ([]*domain.Patient, error) {
	return s.store.ListPatients(ctx)
}

// GetPatient returns a single patient.
func (s *PatientService) GetPatient(ctx context.Context, patientID string) (*domain.Patient, error) {
	return s.store.GetPatient(ctx, patientID)
}

// CreatePatientRequest contains fields for creating a patient.
type CreatePatientRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Sex      string `json:"sex" validate:"sex"`
	Birthday string `json:"birthday" validate:"omitempty,datetime=2006-01-02"`
	Notes    string `json:"notes" validate:"max=4000"`
}

// CreatePatient creates a new patient. The name is title-cased so header
// spellings like "ИВАНОВ ИВАН" and "Иванов Иван" resolve to one identity.
func (s *PatientService) CreatePatient(ctx context.Context, req CreatePatientRequest) (*domain.Patient, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	p := &domain.Patient{
		Name:  normalize.TitleCase(req.Name),
		Sex:   parseSex(req.Sex),
		Notes: req.Notes,
	}
	if req.Birthday != "" {
		b, err := time.Parse(birthdayLayout, req.Birthday)
		if err != nil {
			return nil, errors.Validationf("invalid birthday %q", req.Birthday)
		}
		p.Birthday = &b
	}

	patientID, err := id.Generate("pat")
	if err != nil {
		return nil, err
	}
	p.ID = patientID
	p.InitTimestamps()

	if err := s.store.CreatePatient(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("patient created", "id", p.ID, "name", p.Name)
	return p, nil
}

// UpdatePatientRequest contains fields for updating a patient.
// Nil pointers leave the field unchanged.
type UpdatePatientRequest struct {
	Name     *string `json:"name"`
	Sex      *string `json:"sex" validate:"omitempty,sex"`
	Birthday *string `json:"birthday" validate:"omitempty,datetime=2006-01-02"`
	Notes    *string `json:"notes"`
}

// UpdatePatient applies a partial update to a patient.
func (s *PatientService) UpdatePatient(ctx context.Context, patientID string, req UpdatePatientRequest) (*domain.Patient, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	p, err := s.store.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if *req.Name == "" {
			return nil, errors.Validation("name cannot be empty")
		}
		p.Name = normalize.TitleCase(*req.Name)
	}
	if req.Sex != nil {
		p.Sex = parseSex(*req.Sex)
	}
	if req.Birthday != nil {
		if *req.Birthday == "" {
			p.Birthday = nil
		} else {
			b, err := time.Parse(birthdayLayout, *req.Birthday)
			if err != nil {
				return nil, errors.Validationf("invalid birthday %q", *req.Birthday)
			}
			p.Birthday = &b
		}
	}
	if req.Notes != nil {
		p.Notes = *req.Notes
	}

	p.Touch()
	if err := s.store.UpdatePatient(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// DeletePatient deletes a patient. Recordings, segments and diagnoses
// cascade in the store.
func (s *PatientService) DeletePatient(ctx context.Context, patientID string) error {
	if err := s.store.DeletePatient(ctx, patientID); err != nil {
		return err
	}
	s.logger.Info("patient deleted", "id", patientID)
	return nil
}

// AddDiagnosisRequest contains fields for attaching a diagnosis.
type AddDiagnosisRequest struct {
	Code        string `json:"code" validate:"required,max=20"`
	Description string `json:"description" validate:"max=500"`
	Notes       string `json:"notes" validate:"max=4000"`
}

// AddDiagnosis attaches an ICD-coded diagnosis to a patient.
func (s *PatientService) AddDiagnosis(ctx context.Context, patientID string, req AddDiagnosisRequest) (*domain.Diagnosis, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	d := &domain.Diagnosis{
		PatientID:   patientID,
		Code:        req.Code,
		Description: req.Description,
		Notes:       req.Notes,
	}
	diagID, err := id.Generate("diag")
	if err != nil {
		return nil, err
	}
	d.ID = diagID
	d.InitTimestamps()

	if err := s.store.AddDiagnosis(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// ListDiagnoses returns a patient's diagnoses.
func (s *PatientService) ListDiagnoses(ctx context.Context, patientID string) ([]*domain.Diagnosis, error) {
	return s.store.ListDiagnoses(ctx, patientID)
}

// DeleteDiagnosis removes a diagnosis.
func (s *PatientService) DeleteDiagnosis(ctx context.Context, diagnosisID string) error {
	return s.store.DeleteDiagnosis(ctx, diagnosisID)
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
