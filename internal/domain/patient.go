package domain

import "time"

// Sex is the biological sex recorded in the EDF patient field.
type Sex string

// Sex values. Unknown covers absent or anonymized headers.
const (
	SexMale    Sex = "M"
	SexFemale  Sex = "F"
	SexUnknown Sex = "N"
)

// Patient is a subject with one or more cataloged recordings.
// Patients are unique by (Name, Birthday).
type Patient struct {
	Entity
	Name     string     `json:"name"`
	Birthday *time.Time `json:"birthday,omitempty"`
	Sex      Sex        `json:"sex"`
	Notes    string     `json:"notes,omitempty"`
}

// AgeAt returns the patient's age in full years at the given date,
// or -1 if the birthday is unknown.
func (p *Patient) AgeAt(date time.Time) int {
	if p.Birthday == nil {
		return -1
	}
	b := *p.Birthday
	age := date.Year() - b.Year()
	if date.Month() < b.Month() || (date.Month() == b.Month() && date.Day() < b.Day()) {
		age--
	}
	if age < 0 {
		return -1
	}
	return age
}

// Diagnosis is an ICD-coded diagnosis attached to a patient.
type Diagnosis struct {
	Entity
	PatientID   string `json:"patient_id"`
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
	Notes       string `json:"notes,omitempty"`
}
