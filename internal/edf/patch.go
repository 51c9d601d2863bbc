package edf

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/neurovault/neurovault-server/internal/errors"
)

// Patient identification and start-stamp field positions in the EDF header.
const (
	patientFieldOffset = 8
	patientFieldSize   = 80
	startFieldOffset   = 168
	startFieldSize     = 16
)

// ReadPatientField decodes the patient identification straight from the
// file header, without loading the signal data.
func ReadPatientField(path string) (Patient, error) {
	f, err := os.Open(path)
	if err != nil {
		return Patient{}, fmt.Errorf("open edf file: %w", err)
	}
	defer f.Close()

	buf := make([]byte, patientFieldSize)
	if _, err := f.ReadAt(buf, patientFieldOffset); err != nil {
		return Patient{}, errors.CorruptFile(fmt.Sprintf("%s: short header: %v", path, err))
	}
	return ParsePatient(string(buf)), nil
}

// ReadStartTime decodes the recording start straight from the file
// header, without loading the signal data.
func ReadStartTime(path string) (time.Time, error) {
	f, err := os.Open(path)
	if err != nil {
		return time.Time{}, fmt.Errorf("open edf file: %w", err)
	}
	defer f.Close()

	buf := make([]byte, startFieldSize)
	if _, err := f.ReadAt(buf, startFieldOffset); err != nil {
		return time.Time{}, errors.CorruptFile(fmt.Sprintf("%s: short header: %v", path, err))
	}

	stamp := strings.TrimSpace(string(buf[:8])) + " " + strings.TrimSpace(string(buf[8:]))
	t, err := time.ParseInLocation(startTimeLayout, stamp, time.Local)
	if err != nil {
		return time.Time{}, errors.CorruptFile(fmt.Sprintf("%s: bad start stamp %q", path, stamp))
	}
	return t, nil
}

// RewritePatientName replaces the name subfield of the patient
// identification header in place, preserving code, sex and birthdate. The
// signal data is untouched.
func RewritePatientName(path, name string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("open edf file: %w", err)
	}
	defer f.Close()

	buf := make([]byte, patientFieldSize)
	if _, err := f.ReadAt(buf, patientFieldOffset); err != nil {
		return errors.CorruptFile(fmt.Sprintf("%s: short header: %v", path, err))
	}

	p := ParsePatient(string(buf))
	p.Name = name
	field := p.Field()
	if len(field) > patientFieldSize {
		return errors.Validationf("patient field %q exceeds %d bytes", field, patientFieldSize)
	}

	padded := make([]byte, patientFieldSize)
	for i := range padded {
		padded[i] = ' '
	}
	copy(padded, field)

	if _, err := f.WriteAt(padded, patientFieldOffset); err != nil {
		return fmt.Errorf("write patient field: %w", err)
	}
	return nil
}

// Hash returns the file's MD5 digest, hex encoded. Digests identify
// duplicate recordings across the library.
func Hash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open edf file: %w", err)
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash edf file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
