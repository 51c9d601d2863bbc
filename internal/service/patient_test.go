package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/neurovault/neurovault-server/internal/domain"
	"github.com/neurovault/neurovault-server/internal/errors"
	"github.com/neurovault/neurovault-server/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"), testLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreatePatient(t *testing.T) {
	svc := NewPatientService(newTestStore(t), testLogger())
	ctx := context.Background()

	p, err := svc.CreatePatient(ctx, CreatePatientRequest{
		Name:     "ИВАНОВ ИВАН",
		Sex:      "M",
		Birthday: "1951-05-02",
	})
	if err != nil {
		t.Fatalf("CreatePatient() error = %v", err)
	}
	if p.ID == "" {
		t.Error("expected generated ID")
	}
	if p.Name != "Иванов Иван" {
		t.Errorf("Name = %q, want title-cased", p.Name)
	}
	if p.Sex != domain.SexMale {
		t.Errorf("Sex = %q", p.Sex)
	}
	if p.Birthday == nil || p.Birthday.Format("2006-01-02") != "1951-05-02" {
		t.Errorf("Birthday = %v", p.Birthday)
	}

	got, err := svc.GetPatient(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPatient() error = %v", err)
	}
	if got.Name != p.Name {
		t.Errorf("stored name = %q", got.Name)
	}
}

func TestCreatePatientValidation(t *testing.T) {
	svc := NewPatientService(newTestStore(t), testLogger())
	ctx := context.Background()

	tests := []struct {
		name string
		req  CreatePatientRequest
	}{
		{"missing name", CreatePatientRequest{Sex: "M"}},
		{"bad sex", CreatePatientRequest{Name: "Test", Sex: "Q"}},
		{"bad birthday", CreatePatientRequest{Name: "Test", Birthday: "02.05.1951"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.CreatePatient(ctx, tt.req); !errors.Is(err, errors.ErrValidation) {
				t.Errorf("error = %v, want validation", err)
			}
		})
	}
}

func TestUpdatePatient(t *testing.T) {
	svc := NewPatientService(newTestStore(t), testLogger())
	ctx := context.Background()

	p, err := svc.CreatePatient(ctx, CreatePatientRequest{Name: "Иванов Иван", Sex: "M"})
	if err != nil {
		t.Fatal(err)
	}

	newName := "петров пётр"
	notes := "transferred from archive"
	updated, err := svc.UpdatePatient(ctx, p.ID, UpdatePatientRequest{Name: &newName, Notes: &notes})
	if err != nil {
		t.Fatalf("UpdatePatient() error = %v", err)
	}
	if updated.Name != "Петров Пётр" {
		t.Errorf("Name = %q", updated.Name)
	}
	if updated.Notes != notes {
		t.Errorf("Notes = %q", updated.Notes)
	}
	if updated.Sex != domain.SexMale {
		t.Error("sex should be unchanged")
	}

	empty := ""
	if _, err := svc.UpdatePatient(ctx, p.ID, UpdatePatientRequest{Name: &empty}); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("empty name: error = %v, want validation", err)
	}

	if _, err := svc.UpdatePatient(ctx, "pat-missing", UpdatePatientRequest{Notes: &notes}); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("missing patient: error = %v, want not found", err)
	}
}

func TestPatientDiagnoses(t *testing.T) {
	svc := NewPatientService(newTestStore(t), testLogger())
	ctx := context.Background()

	p, err := svc.CreatePatient(ctx, CreatePatientRequest{Name: "Test"})
	if err != nil {
		t.Fatal(err)
	}

	d, err := svc.AddDiagnosis(ctx, p.ID, AddDiagnosisRequest{Code: "G40.3", Description: "epilepsy"})
	if err != nil {
		t.Fatalf("AddDiagnosis() error = %v", err)
	}

	list, err := svc.ListDiagnoses(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Code != "G40.3" {
		t.Errorf("diagnoses = %+v", list)
	}

	if err := svc.DeleteDiagnosis(ctx, d.ID); err != nil {
		t.Fatalf("DeleteDiagnosis() error = %v", err)
	}
	list, err = svc.ListDiagnoses(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Errorf("expected no diagnoses, got %d", len(list))
	}

	if _, err := svc.AddDiagnosis(ctx, "pat-missing", AddDiagnosisRequest{Code: "G40"}); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("missing patient: error = %v, want not found", err)
	}
}

func TestDeletePatient(t *testing.T) {
	svc := NewPatientService(newTestStore(t), testLogger())
	ctx := context.Background()

	p, err := svc.CreatePatient(ctx, CreatePatientRequest{Name: "Test"})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.DeletePatient(ctx, p.ID); err != nil {
		t.Fatalf("DeletePatient() error = %v", err)
	}
	if _, err := svc.GetPatient(ctx, p.ID); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("error = %v, want not found", err)
	}
}
