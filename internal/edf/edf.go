// Package edf reads European Data Format recordings and exposes them as
// segmentation sources: header metadata, per-channel physical samples, and
// the embedded EDF+ annotation stream.
package edf

import (
	"fmt"
	"math"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	edflib "github.com/ishiikurisu/edf"

	"github.com/neurovault/neurovault-server/internal/errors"
	"github.com/neurovault/neurovault-server/internal/segment"
)

// startTimeLayout is the EDF header's startdate/starttime encoding.
const startTimeLayout = "02.01.06 15.04.05"

// serviceChannels are bookkeeping channels, not biosignal data.
var serviceChannels = map[string]struct{}{
	"EDF Annotations": {},
	"Crc16":           {},
}

// annotationRE matches one TAL entry from the annotations channel:
// "+<onset> <duration> <label>".
var annotationRE = regexp.MustCompile(`^\+([\d.]+)\s([\d.]+)\s(.+?)\s*$`)

// Annotation is one entry from the EDF+ annotations channel. Onset and
// Duration are in seconds from recording start.
type Annotation struct {
	Label    string
	Onset    float64
	Duration float64
}

// Options controls how a recording is loaded.
type Options struct {
	// ExcludeChannels drops the named channels from the signal set.
	// Labels match before and after whitespace trimming, so padded EDF
	// labels like "ECG  ECG" work either way.
	ExcludeChannels []string
}

// Recording is a fully loaded EDF file. It is immutable after Open and
// safe for concurrent reads, including concurrent Crop calls.
type Recording struct {
	path        string
	patient     Patient
	startTime   time.Time
	sampleRate  float64
	duration    float64
	channels    []string
	signals     [][]float64
	annotations []Annotation
	events      []segment.RawEvent
	codes       segment.CodeTable
}

// Open loads an EDF file. Files the parser cannot read come back as
// corrupt-file errors.
func Open(path string, opts Options) (rec *Recording, err error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat edf file: %w", err)
	}

	// The library panics on malformed files. Surface that as a
	// corrupt-file error instead.
	defer func() {
		if r := recover(); r != nil {
			rec = nil
			err = errors.CorruptFile(fmt.Sprintf("%s: %v", path, r))
		}
	}()
	data := edflib.ReadFile(path)

	sampling := data.GetSampling()
	recordDur := data.GetDuration()
	if sampling <= 0 || recordDur <= 0 {
		return nil, errors.CorruptFile(fmt.Sprintf("%s: invalid sampling metadata", path))
	}

	rec = &Recording{
		path:       path,
		sampleRate: float64(sampling) / recordDur,
		patient:    ParsePatient(data.Header["patient"]),
	}
	if t, err := time.ParseInLocation(startTimeLayout, data.Header["startdate"]+" "+data.Header["starttime"], time.Local); err == nil {
		rec.startTime = t
	}

	exclude := make(map[string]struct{}, len(opts.ExcludeChannels))
	for _, name := range opts.ExcludeChannels {
		exclude[name] = struct{}{}
	}

	labels := data.GetLabels()
	for i, series := range data.PhysicalRecords {
		if i >= len(labels) {
			break
		}
		label := strings.TrimSpace(labels[i])
		if _, service := serviceChannels[label]; service {
			continue
		}
		if _, skip := exclude[labels[i]]; skip {
			continue
		}
		if _, skip := exclude[label]; skip {
			continue
		}
		rec.channels = append(rec.channels, label)
		rec.signals = append(rec.signals, series)
	}
	if len(rec.signals) == 0 {
		return nil, errors.CorruptFile(fmt.Sprintf("%s: no signal channels", path))
	}
	rec.duration = float64(len(rec.signals[0])) / rec.sampleRate

	rec.annotations = parseAnnotations(data.WriteNotes())
	rec.codes, rec.events = buildEvents(rec.annotations, rec.sampleRate)
	return rec, nil
}

// parseAnnotations decodes the annotation channel text, one TAL entry per
// line. The synthetic "Recording starts" marker is dropped.
func parseAnnotations(notes string) []Annotation {
	var out []Annotation
	for _, line := range strings.Split(notes, "\n") {
		m := annotationRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		onset, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		dur, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		label := strings.TrimSpace(m[3])
		if label == "" || label == "Recording starts" {
			continue
		}
		out = append(out, Annotation{Label: label, Onset: onset, Duration: dur})
	}
	return out
}

// buildEvents assigns event codes in sorted label order so the code table
// does not depend on annotation order, then maps each annotation onset to
// its nearest sample index.
func buildEvents(annotations []Annotation, rate float64) (segment.CodeTable, []segment.RawEvent) {
	labels := make([]string, 0, len(annotations))
	seen := make(map[string]struct{}, len(annotations))
	for _, a := range annotations {
		if _, dup := seen[a.Label]; dup {
			continue
		}
		seen[a.Label] = struct{}{}
		labels = append(labels, a.Label)
	}
	sort.Strings(labels)

	codes := make(segment.CodeTable, len(labels))
	for i, label := range labels {
		codes[label] = i + 1
	}

	events := make([]segment.RawEvent, 0, len(annotations))
	for _, a := range annotations {
		events = append(events, segment.RawEvent{
			Sample: int64(math.Round(a.Onset * rate)),
			Code:   codes[a.Label],
		})
	}
	return codes, events
}

// Path returns the file the recording was loaded from.
func (r *Recording) Path() string { return r.path }

// Patient returns the parsed local patient identification field.
func (r *Recording) Patient() Patient { return r.patient }

// StartTime returns the recording start, or the zero time when the header
// carried no parseable date.
func (r *Recording) StartTime() time.Time { return r.startTime }

// Annotations returns the raw annotation entries in file order.
func (r *Recording) Annotations() []Annotation { return r.annotations }

func (r *Recording) SampleRate() float64        { return r.sampleRate }
func (r *Recording) DurationSeconds() float64   { return r.duration }
func (r *Recording) ChannelNames() []string     { return r.channels }
func (r *Recording) Events() []segment.RawEvent { return r.events }
func (r *Recording) CodeTable() segment.CodeTable {
	return r.codes
}
