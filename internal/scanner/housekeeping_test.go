package scanner

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/neurovault/neurovault-server/internal/edf"
)

// writeHeaderFile lays down the fixed-offset prefix of an EDF header so
// patient-field operations can run without a full recording.
func writeHeaderFile(t *testing.T, path, patient string) {
	t.Helper()
	field := []byte(patient)
	if len(field) > 80 {
		t.Fatalf("patient field too long: %d", len(field))
	}
	padded := make([]byte, 80)
	copy(padded, field)
	for i := len(field); i < 80; i++ {
		padded[i] = ' '
	}

	header := make([]byte, 0, 256)
	header = append(header, []byte("0       ")...)
	header = append(header, padded...)
	for len(header) < 256 {
		header = append(header, ' ')
	}
	if err := os.WriteFile(path, header, 0o644); err != nil {
		t.Fatal(err)
	}
}

// writeHeaderFileAt is writeHeaderFile plus a start stamp at the header's
// startdate/starttime offsets.
func writeHeaderFileAt(t *testing.T, path, patient string, start time.Time) {
	t.Helper()
	writeHeaderFile(t, path, patient)

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	stamp := start.Format("02.01.06") + start.Format("15.04.05")
	if _, err := f.WriteAt([]byte(stamp), 168); err != nil {
		t.Fatal(err)
	}
}

func TestListEDFFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.edf"), 10)
	writeFile(t, filepath.Join(dir, "a.EDF"), 10)
	writeFile(t, filepath.Join(dir, "readme.md"), 10)
	if err := os.Mkdir(filepath.Join(dir, "sub.edf"), 0o755); err != nil {
		t.Fatal(err)
	}

	files, err := listEDFFiles(dir)
	if err != nil {
		t.Fatalf("listEDFFiles() error = %v", err)
	}
	want := []string{filepath.Join(dir, "a.EDF"), filepath.Join(dir, "b.edf")}
	if len(files) != 2 || files[0] != want[0] || files[1] != want[1] {
		t.Errorf("listEDFFiles() = %v, want %v", files, want)
	}
}

func TestFindAndDeleteDuplicates(t *testing.T) {
	dir := t.TempDir()
	same := []byte("identical content padded to a realistic size............")
	if err := os.WriteFile(filepath.Join(dir, "one.edf"), same, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "two.edf"), same, 0o644); err != nil {
		t.Fatal(err)
	}
	// Same size, different content. Must not be flagged.
	other := append([]byte{}, same...)
	other[0] = 'X'
	if err := os.WriteFile(filepath.Join(dir, "three.edf"), other, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "four.edf"), []byte("short"), 0o644); err != nil {
		t.Fatal(err)
	}

	h := NewHousekeeper(nil, testLogger())
	duplicates, err := h.FindDuplicates(context.Background(), dir)
	if err != nil {
		t.Fatalf("FindDuplicates() error = %v", err)
	}
	if len(duplicates) != 1 {
		t.Fatalf("expected 1 duplicate group, got %d: %v", len(duplicates), duplicates)
	}
	for _, paths := range duplicates {
		if len(paths) != 2 {
			t.Fatalf("expected 2 files in group, got %v", paths)
		}
		if paths[0] != filepath.Join(dir, "one.edf") {
			t.Errorf("group should be sorted, got %v", paths)
		}
	}

	deleted, reclaimed := h.DeleteDuplicates(duplicates)
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
	if reclaimed != int64(len(same)) {
		t.Errorf("reclaimed = %d, want %d", reclaimed, len(same))
	}
	if _, err := os.Stat(filepath.Join(dir, "one.edf")); err != nil {
		t.Error("first file of the group must survive")
	}
	if _, err := os.Stat(filepath.Join(dir, "two.edf")); !os.IsNotExist(err) {
		t.Error("second file of the group must be deleted")
	}
	if _, err := os.Stat(filepath.Join(dir, "three.edf")); err != nil {
		t.Error("same-size different-content file must survive")
	}
}

func TestRemoveCorrupted(t *testing.T) {
	dir := t.TempDir()
	// Far too short for any EDF header.
	writeFile(t, filepath.Join(dir, "truncated.edf"), 10)

	h := NewHousekeeper(nil, testLogger())
	removed, err := h.RemoveCorrupted(context.Background(), dir)
	if err != nil {
		t.Fatalf("RemoveCorrupted() error = %v", err)
	}
	if len(removed) != 1 || removed[0] != filepath.Join(dir, "truncated.edf") {
		t.Errorf("removed = %v", removed)
	}
	if _, err := os.Stat(filepath.Join(dir, "truncated.edf")); !os.IsNotExist(err) {
		t.Error("corrupted file should be gone")
	}
}

func TestAnonymize(t *testing.T) {
	dir := t.TempDir()
	writeHeaderFile(t, filepath.Join(dir, "ivanov.edf"), "MCH-1 M 02-MAY-1951 Ivan_Ivanov")
	writeHeaderFile(t, filepath.Join(dir, "petrova.edf"), "MCH-2 F 15-JUN-1960 Anna_Petrova")

	h := NewHousekeeper(nil, testLogger())
	n, err := h.Anonymize(context.Background(), dir)
	if err != nil {
		t.Fatalf("Anonymize() error = %v", err)
	}
	if n != 2 {
		t.Fatalf("anonymized %d files, want 2", n)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	codeName := regexp.MustCompile(`^\d{6}\.edf$`)
	var codes []string
	for _, e := range entries {
		if e.Name() == "name_mapping.csv" {
			continue
		}
		if !codeName.MatchString(e.Name()) {
			t.Fatalf("unexpected file after anonymization: %s", e.Name())
		}
		codes = append(codes, strings.TrimSuffix(e.Name(), ".edf"))
	}
	if len(codes) != 2 {
		t.Fatalf("expected 2 anonymized files, got %d", len(codes))
	}

	// Header keeps the code, sex and birthdate subfields but not the name.
	patient, err := edf.ReadPatientField(filepath.Join(dir, codes[0]+".edf"))
	if err != nil {
		t.Fatal(err)
	}
	field := patient.Field()
	if strings.Contains(field, "Ivan") || strings.Contains(field, "Anna") {
		t.Errorf("patient name leaked into header: %q", field)
	}
	parts := strings.Fields(field)
	if len(parts) != 4 {
		t.Fatalf("patient field = %q, want 4 subfields", field)
	}
	if !codeName.MatchString(parts[3] + ".edf") {
		t.Errorf("name subfield = %q, want six-digit code", parts[3])
	}

	f, err := os.Open(filepath.Join(dir, "name_mapping.csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("mapping has %d rows, want header plus 2", len(rows))
	}
	if rows[0][0] != "Old Name" || rows[0][1] != "New Name" {
		t.Errorf("unexpected header row: %v", rows[0])
	}
	oldNames := map[string]bool{rows[1][0]: true, rows[2][0]: true}
	if !oldNames["ivanov.edf"] || !oldNames["petrova.edf"] {
		t.Errorf("mapping old names = %v", oldNames)
	}
}

func TestUniqueCode(t *testing.T) {
	used := make(map[string]struct{})
	seen := make(map[string]bool)
	for range 100 {
		code := uniqueCode(used)
		if len(code) != 6 {
			t.Fatalf("code %q is not six digits", code)
		}
		for _, c := range code {
			if c < '0' || c > '9' {
				t.Fatalf("code %q has non-digit", code)
			}
		}
		if seen[code] {
			t.Fatalf("code %q repeated", code)
		}
		seen[code] = true
	}
}

func TestFindSimilarStartTimes(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.Local)
	writeHeaderFileAt(t, filepath.Join(dir, "a.edf"), "MCH-1 M X Ivanov", base)
	writeHeaderFileAt(t, filepath.Join(dir, "b.edf"), "MCH-1 M X Ivanov", base.Add(5*time.Minute))
	writeHeaderFileAt(t, filepath.Join(dir, "c.edf"), "MCH-2 F X Petrova", base.Add(5*time.Hour))
	// No start stamp at all; skipped, not fatal.
	writeHeaderFile(t, filepath.Join(dir, "blank.edf"), "MCH-3 F X Sidorova")

	h := NewHousekeeper(nil, testLogger())
	groups, err := h.FindSimilarStartTimes(context.Background(), dir)
	if err != nil {
		t.Fatalf("FindSimilarStartTimes() error = %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("groups = %v", groups)
	}
	if len(groups[0]) != 2 {
		t.Fatalf("group = %v", groups[0])
	}
	want := map[string]bool{
		filepath.Join(dir, "a.edf"): true,
		filepath.Join(dir, "b.edf"): true,
	}
	for _, path := range groups[0] {
		if !want[path] {
			t.Errorf("unexpected group member %s", path)
		}
	}
}
