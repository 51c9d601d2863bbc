package edf

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePatient(t *testing.T) {
	tests := []struct {
		name  string
		field string
		want  Patient
	}{
		{
			name:  "full edf+ field",
			field: "MCH-0234567 F 02-MAY-1951 Haagse_Harry",
			want:  Patient{Code: "MCH-0234567", Sex: "F", Birthdate: "02-MAY-1951", Name: "Haagse Harry"},
		},
		{
			name:  "unknown subfields",
			field: "X X X Иванов_Иван",
			want:  Patient{Name: "Иванов Иван"},
		},
		{
			name:  "trailing header padding",
			field: "P001 M 01-JAN-1990 Smith_John                    ",
			want:  Patient{Code: "P001", Sex: "M", Birthdate: "01-JAN-1990", Name: "Smith John"},
		},
		{
			name:  "non-conforming field keeps text as name",
			field: "  Иванов Иван  ",
			want:  Patient{Name: "Иванов Иван"},
		},
		{
			name:  "empty field",
			field: "",
			want:  Patient{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePatient(tt.field))
		})
	}
}

func TestPatientFieldRoundTrip(t *testing.T) {
	p := Patient{Code: "P001", Sex: "M", Birthdate: "01-JAN-1990", Name: "Smith John"}
	assert.Equal(t, "P001 M 01-JAN-1990 Smith_John", p.Field())
	assert.Equal(t, p, ParsePatient(p.Field()))

	anon := Patient{Name: "482913"}
	assert.Equal(t, "X X X 482913", anon.Field())
}

func TestPatientBirthday(t *testing.T) {
	p := Patient{Birthdate: "02-MAY-1951"}
	got, ok := p.Birthday()
	require.True(t, ok)
	assert.Equal(t, time.Date(1951, time.May, 2, 0, 0, 0, 0, time.UTC), got)

	for _, bad := range []string{"", "X", "1951-05-02", "02-XXX-1951"} {
		_, ok := Patient{Birthdate: bad}.Birthday()
		assert.False(t, ok, "birthdate %q", bad)
	}
}

// writeTestHeader creates a file with a minimal EDF header region: an
// 8-byte version field followed by the 80-byte patient field.
func writeTestHeader(t *testing.T, patient string) string {
	t.Helper()

	field := patient + strings.Repeat(" ", patientFieldSize-len(patient))
	content := "0       " + field + strings.Repeat(" ", 168)

	path := filepath.Join(t.TempDir(), "test.edf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadPatientField(t *testing.T) {
	path := writeTestHeader(t, "P001 M 01-JAN-1990 Smith_John")

	p, err := ReadPatientField(path)
	require.NoError(t, err)
	assert.Equal(t, Patient{Code: "P001", Sex: "M", Birthdate: "01-JAN-1990", Name: "Smith John"}, p)
}

func TestRewritePatientName(t *testing.T) {
	path := writeTestHeader(t, "P001 M 01-JAN-1990 Smith_John")

	require.NoError(t, RewritePatientName(path, "482913"))

	p, err := ReadPatientField(path)
	require.NoError(t, err)
	// Name replaced, identity subfields preserved.
	assert.Equal(t, Patient{Code: "P001", Sex: "M", Birthdate: "01-JAN-1990", Name: "482913"}, p)

	// The file size must not change: the field is patched in place.
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.EqualValues(t, 256, info.Size())
}

func TestRewritePatientNameTooLong(t *testing.T) {
	path := writeTestHeader(t, "P001 M 01-JAN-1990 Smith_John")
	assert.Error(t, RewritePatientName(path, strings.Repeat("x", 100)))
}

func TestHash(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.edf")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	sum, err := Hash(path)
	require.NoError(t, err)
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", sum)

	_, err = Hash(filepath.Join(t.TempDir(), "missing.edf"))
	assert.Error(t, err)
}
