package edf

import (
	"strings"
	"time"
)

// birthdateLayout is the EDF+ birthdate subfield encoding, e.g. "02-MAY-1951".
const birthdateLayout = "02-Jan-2006"

// Patient is the decoded EDF+ local patient identification field. Empty
// strings stand for the "X" unknown marker.
type Patient struct {
	Code      string
	Sex       string
	Birthdate string
	Name      string
}

// ParsePatient decodes the local patient identification field. EDF+ packs
// it as four space-separated subfields (code, sex, birthdate, name) with
// underscores standing in for spaces. Non-conforming fields keep the whole
// text as the name.
func ParsePatient(field string) Patient {
	parts := strings.Fields(field)
	if len(parts) < 4 {
		return Patient{Name: strings.TrimSpace(field)}
	}
	return Patient{
		Code:      subfield(parts[0]),
		Sex:       subfield(parts[1]),
		Birthdate: subfield(parts[2]),
		Name:      strings.ReplaceAll(strings.Join(parts[3:], " "), "_", " "),
	}
}

// Field renders the patient back into EDF+ subfield form.
func (p Patient) Field() string {
	return strings.Join([]string{
		orUnknown(p.Code),
		orUnknown(p.Sex),
		orUnknown(p.Birthdate),
		orUnknown(strings.ReplaceAll(p.Name, " ", "_")),
	}, " ")
}

// Birthday parses the birthdate subfield. The month abbreviation arrives
// uppercase, which time.Parse will not take as-is.
func (p Patient) Birthday() (time.Time, bool) {
	parts := strings.Split(p.Birthdate, "-")
	if len(parts) != 3 || parts[1] == "" {
		return time.Time{}, false
	}
	month := strings.ToUpper(parts[1][:1]) + strings.ToLower(parts[1][1:])
	t, err := time.Parse(birthdateLayout, parts[0]+"-"+month+"-"+parts[2])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func subfield(s string) string {
	if s == "X" {
		return ""
	}
	return s
}

func orUnknown(s string) string {
	if s == "" {
		return "X"
	}
	return s
}
