package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neurovault/neurovault-server/internal/domain"
	"github.com/neurovault/neurovault-server/internal/service"
)

func (s *Server) registerPatientRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listPatients",
		Method:      http.MethodGet,
		Path:        "/api/v1/patients",
		Summary:     "List patients",
		Description: "Returns all patients ordered by name",
		Tags:        []string{"Patients"},
	}, s.handleListPatients)

	huma.Register(s.api, huma.Operation{
		OperationID: "createPatient",
		Method:      http.MethodPost,
		Path:        "/api/v1/patients",
		Summary:     "Create patient",
		Tags:        []string{"Patients"},
	}, s.handleCreatePatient)

	huma.Register(s.api, huma.Operation{
		OperationID: "getPatient",
		Method:      http.MethodGet,
		Path:        "/api/v1/patients/{id}",
		Summary:     "Get patient",
		Tags:        []string{"Patients"},
	}, s.handleGetPatient)

	huma.Register(s.api, huma.Operation{
		OperationID: "updatePatient",
		Method:      http.MethodPatch,
		Path:        "/api/v1/patients/{id}",
		Summary:     "Update patient",
		Tags:        []string{"Patients"},
	}, s.handleUpdatePatient)

	huma.Register(s.api, huma.Operation{
		OperationID: "deletePatient",
		Method:      http.MethodDelete,
		Path:        "/api/v1/patients/{id}",
		Summary:     "Delete patient",
		Description: "Deletes a patient and cascades to recordings, segments, and diagnoses",
		Tags:        []string{"Patients"},
	}, s.handleDeletePatient)

	huma.Register(s.api, huma.Operation{
		OperationID: "listPatientRecordings",
		Method:      http.MethodGet,
		Path:        "/api/v1/patients/{id}/recordings",
		Summary:     "List patient recordings",
		Tags:        []string{"Patients"},
	}, s.handleListPatientRecordings)

	huma.Register(s.api, huma.Operation{
		OperationID: "listDiagnoses",
		Method:      http.MethodGet,
		Path:        "/api/v1/patients/{id}/diagnoses",
		Summary:     "List diagnoses",
		Tags:        []string{"Patients"},
	}, s.handleListDiagnoses)

	huma.Register(s.api, huma.Operation{
		OperationID: "addDiagnosis",
		Method:      http.MethodPost,
		Path:        "/api/v1/patients/{id}/diagnoses",
		Summary:     "Add diagnosis",
		Tags:        []string{"Patients"},
	}, s.handleAddDiagnosis)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteDiagnosis",
		Method:      http.MethodDelete,
		Path:        "/api/v1/diagnoses/{id}",
		Summary:     "Delete diagnosis",
		Tags:        []string{"Patients"},
	}, s.handleDeleteDiagnosis)
}

// === DTOs ===

type PatientResponse struct {
	ID        string    `json:"id" doc:"Patient ID"`
	Name      string    `json:"name" doc:"Patient name"`
	Sex       string    `json:"sex" doc:"Sex code: M, F, or N"`
	Birthday  string    `json:"birthday,omitempty" doc:"Birthday (YYYY-MM-DD)"`
	Notes     string    `json:"notes,omitempty" doc:"Free-form notes"`
	CreatedAt time.Time `json:"created_at" doc:"Creation time"`
	UpdatedAt time.Time `json:"updated_at" doc:"Last update time"`
}

type ListPatientsOutput struct {
	Body struct {
		Patients []PatientResponse `json:"patients" doc:"List of patients"`
	}
}

type CreatePatientInput struct {
	Body struct {
		Name     string `json:"name" doc:"Patient name"`
		Sex      string `json:"sex,omitempty" doc:"Sex code: M or F"`
		Birthday string `json:"birthday,omitempty" doc:"Birthday (YYYY-MM-DD)"`
		Notes    string `json:"notes,omitempty" doc:"Free-form notes"`
	}
}

type PatientOutput struct {
	Body PatientResponse
}

type GetPatientInput struct {
	ID string `path:"id" doc:"Patient ID"`
}

type UpdatePatientInput struct {
	ID   string `path:"id" doc:"Patient ID"`
	Body struct {
		Name     *string `json:"name,omitempty" doc:"Patient name"`
		Sex      *string `json:"sex,omitempty" doc:"Sex code: M or F"`
		Birthday *string `json:"birthday,omitempty" doc:"Birthday (YYYY-MM-DD), empty clears"`
		Notes    *string `json:"notes,omitempty" doc:"Free-form notes"`
	}
}

type DiagnosisResponse struct {
	ID          string    `json:"id" doc:"Diagnosis ID"`
	PatientID   string    `json:"patient_id" doc:"Patient ID"`
	Code        string    `json:"code" doc:"ICD code"`
	Description string    `json:"description,omitempty" doc:"Description"`
	Notes       string    `json:"notes,omitempty" doc:"Free-form notes"`
	CreatedAt   time.Time `json:"created_at" doc:"Creation time"`
}

type ListDiagnosesOutput struct {
	Body struct {
		Diagnoses []DiagnosisResponse `json:"diagnoses" doc:"List of diagnoses"`
	}
}

type AddDiagnosisInput struct {
	ID   string `path:"id" doc:"Patient ID"`
	Body struct {
		Code        string `json:"code" doc:"ICD code"`
		Description string `json:"description,omitempty" doc:"Description"`
		Notes       string `json:"notes,omitempty" doc:"Free-form notes"`
	}
}

type DiagnosisOutput struct {
	Body DiagnosisResponse
}

// MessageResponse is a simple confirmation body.
type MessageResponse struct {
	Message string `json:"message" doc:"Confirmation message"`
}

// MessageOutput wraps MessageResponse for Huma.
type MessageOutput struct {
	Body MessageResponse
}

// === Handlers ===

func (s *Server) handleListPatients(ctx context.Context, _ *struct{}) (*ListPatientsOutput, error) {
	patients, err := s.services.Patient.ListPatients(ctx)
	if err != nil {
		return nil, err
	}

	out := &ListPatientsOutput{}
	out.Body.Patients = make([]PatientResponse, len(patients))
	for i, p := range patients {
		out.Body.Patients[i] = mapPatientResponse(p)
	}
	return out, nil
}

func (s *Server) handleCreatePatient(ctx context.Context, input *CreatePatientInput) (*PatientOutput, error) {
	p, err := s.services.Patient.CreatePatient(ctx, service.CreatePatientRequest{
		Name:     input.Body.Name,
		Sex:      input.Body.Sex,
		Birthday: input.Body.Birthday,
		Notes:    input.Body.Notes,
	})
	if err != nil {
		return nil, err
	}
	return &PatientOutput{Body: mapPatientResponse(p)}, nil
}

func (s *Server) handleGetPatient(ctx context.Context, input *GetPatientInput) (*PatientOutput, error) {
	p, err := s.services.Patient.GetPatient(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &PatientOutput{Body: mapPatientResponse(p)}, nil
}

func (s *Server) handleUpdatePatient(ctx context.Context, input *UpdatePatientInput) (*PatientOutput, error) {
	p, err := s.services.Patient.UpdatePatient(ctx, input.ID, service.UpdatePatientRequest{
		Name:     input.Body.Name,
		Sex:      input.Body.Sex,
		Birthday: input.Body.Birthday,
		Notes:    input.Body.Notes,
	})
	if err != nil {
		return nil, err
	}
	return &PatientOutput{Body: mapPatientResponse(p)}, nil
}

func (s *Server) handleDeletePatient(ctx context.Context, input *GetPatientInput) (*MessageOutput, error) {
	if err := s.services.Patient.DeletePatient(ctx, input.ID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Patient deleted"}}, nil
}

func (s *Server) handleListPatientRecordings(ctx context.Context, input *GetPatientInput) (*ListRecordingsOutput, error) {
	if _, err := s.services.Patient.GetPatient(ctx, input.ID); err != nil {
		return nil, err
	}
	recordings, err := s.services.Recording.ListRecordingsForPatient(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return mapRecordingList(recordings), nil
}

func (s *Server) handleListDiagnoses(ctx context.Context, input *GetPatientInput) (*ListDiagnosesOutput, error) {
	diagnoses, err := s.services.Patient.ListDiagnoses(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	out := &ListDiagnosesOutput{}
	out.Body.Diagnoses = make([]DiagnosisResponse, len(diagnoses))
	for i, d := range diagnoses {
		out.Body.Diagnoses[i] = mapDiagnosisResponse(d)
	}
	return out, nil
}

func (s *Server) handleAddDiagnosis(ctx context.Context, input *AddDiagnosisInput) (*DiagnosisOutput, error) {
	d, err := s.services.Patient.AddDiagnosis(ctx, input.ID, service.AddDiagnosisRequest{
		Code:        input.Body.Code,
		Description: input.Body.Description,
		Notes:       input.Body.Notes,
	})
	if err != nil {
		return nil, err
	}
	return &DiagnosisOutput{Body: mapDiagnosisResponse(d)}, nil
}

func (s *Server) handleDeleteDiagnosis(ctx context.Context, input *GetPatientInput) (*MessageOutput, error) {
	if err := s.services.Patient.DeleteDiagnosis(ctx, input.ID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Diagnosis deleted"}}, nil
}

// === Mappers ===

func mapPatientResponse(p *domain.Patient) PatientResponse {
	resp := PatientResponse{
		ID:        p.ID,
		Name:      p.Name,
		Sex:       string(p.Sex),
		Notes:     p.Notes,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if p.Birthday != nil {
		resp.Birthday = p.Birthday.Format("2006-01-02")
	}
	return resp
}

func mapDiagnosisResponse(d *domain.Diagnosis) DiagnosisResponse {
	return DiagnosisResponse{
		ID:          d.ID,
		PatientID:   d.PatientID,
		Code:        d.Code,
		Description: d.Description,
		Notes:       d.Notes,
		CreatedAt:   d.CreatedAt,
	}
}
