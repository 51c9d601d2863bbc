package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/neurovault/neurovault-server/internal/domain"
	"github.com/neurovault/neurovault-server/internal/errors"
)

// patientColumns is the ordered list of columns selected in patient
// queries. Must match the scan order in scanPatient.
const patientColumns = `id, created_at, updated_at, name, birthday, sex, notes`

// scanPatient scans a sql.Row (or sql.Rows via its Scan method) into a
// domain.Patient.
func scanPatient(scanner interface{ Scan(dest ...any) error }) (*domain.Patient, error) {
	var p domain.Patient

	var (
		createdAt string
		updatedAt string
		birthday  sql.NullString
		sex       string
		notes     sql.NullString
	)

	err := scanner.Scan(&p.ID, &createdAt, &updatedAt, &p.Name, &birthday, &sex, &notes)
	if err != nil {
		return nil, err
	}

	p.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	p.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	p.Birthday, err = parseNullableTime(birthday)
	if err != nil {
		return nil, err
	}
	p.Sex = domain.Sex(sex)
	if notes.Valid {
		p.Notes = notes.String
	}
	return &p, nil
}

// CreatePatient inserts a new patient.
func (s *Store) CreatePatient(ctx context.Context, p *domain.Patient) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO patients (id, created_at, updated_at, name, birthday, sex, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
		p.Name, nullTimeString(p.Birthday), string(p.Sex), nullString(p.Notes),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return errors.AlreadyExistsf("patient %q already exists", p.Name)
		}
		return fmt.Errorf("insert patient: %w", err)
	}
	return nil
}

// GetPatient returns the patient with the given ID.
func (s *Store) GetPatient(ctx context.Context, id string) (*domain.Patient, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+patientColumns+` FROM patients WHERE id = ?`, id)
	p, err := scanPatient(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFoundf("patient %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get patient: %w", err)
	}
	return p, nil
}

// FindPatientByIdentity returns the patient with the given name and
// birthday, the catalog's natural identity for subjects.
func (s *Store) FindPatientByIdentity(ctx context.Context, name string, birthday *time.Time) (*domain.Patient, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+patientColumns+` FROM patients WHERE name = ? AND birthday IS ?`,
		name, nullTimeString(birthday))
	p, err := scanPatient(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFoundf("patient %q not found", name)
	}
	if err != nil {
		return nil, fmt.Errorf("find patient: %w", err)
	}
	return p, nil
}

// ListPatients returns all patients ordered by name.
func (s *Store) ListPatients(ctx context.Context) ([]*domain.Patient, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+patientColumns+` FROM patients ORDER BY name, birthday`)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	var patients []*domain.Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		patients = append(patients, p)
	}
	return patients, rows.Err()
}

// UpdatePatient updates a patient's mutable fields.
func (s *Store) UpdatePatient(ctx context.Context, p *domain.Patient) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE patients SET updated_at = ?, name = ?, birthday = ?, sex = ?, notes = ? WHERE id = ?`,
		formatTime(p.UpdatedAt), p.Name, nullTimeString(p.Birthday), string(p.Sex), nullString(p.Notes), p.ID,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return errors.AlreadyExistsf("patient %q already exists", p.Name)
		}
		return fmt.Errorf("update patient: %w", err)
	}
	return requireRow(res, "patient", p.ID)
}

// DeletePatient removes a patient and, via cascade, their recordings,
// segments and diagnoses.
func (s *Store) DeletePatient(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM patients WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete patient: %w", err)
	}
	return requireRow(res, "patient", id)
}

// AddDiagnosis attaches a diagnosis to a patient.
func (s *Store) AddDiagnosis(ctx context.Context, d *domain.Diagnosis) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO diagnoses (id, created_at, updated_at, patient_id, code, description, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.ID, formatTime(d.CreatedAt), formatTime(d.UpdatedAt),
		d.PatientID, d.Code, nullString(d.Description), nullString(d.Notes),
	)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return errors.NotFoundf("patient %s not found", d.PatientID)
		}
		return fmt.Errorf("insert diagnosis: %w", err)
	}
	return nil
}

// ListDiagnoses returns a patient's diagnoses in creation order.
func (s *Store) ListDiagnoses(ctx context.Context, patientID string) ([]*domain.Diagnosis, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, updated_at, patient_id, code, description, notes
		 FROM diagnoses WHERE patient_id = ? ORDER BY created_at, id`, patientID)
	if err != nil {
		return nil, fmt.Errorf("list diagnoses: %w", err)
	}
	defer rows.Close()

	var diagnoses []*domain.Diagnosis
	for rows.Next() {
		var d domain.Diagnosis
		var createdAt, updatedAt string
		var description, notes sql.NullString
		if err := rows.Scan(&d.ID, &createdAt, &updatedAt, &d.PatientID, &d.Code, &description, &notes); err != nil {
			return nil, err
		}
		if d.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if d.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		if description.Valid {
			d.Description = description.String
		}
		if notes.Valid {
			d.Notes = notes.String
		}
		diagnoses = append(diagnoses, &d)
	}
	return diagnoses, rows.Err()
}

// DeleteDiagnosis removes a diagnosis.
func (s *Store) DeleteDiagnosis(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM diagnoses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete diagnosis: %w", err)
	}
	return requireRow(res, "diagnosis", id)
}

// requireRow converts a zero-row update or delete into a not-found error.
func requireRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.NotFoundf("%s %s not found", kind, id)
	}
	return nil
}
