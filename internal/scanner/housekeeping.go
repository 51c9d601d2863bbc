package scanner

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/neurovault/neurovault-server/internal/domain"
	"github.com/neurovault/neurovault-server/internal/edf"
	"github.com/neurovault/neurovault-server/internal/errors"
	"github.com/neurovault/neurovault-server/internal/normalize"
)

// Housekeeper performs maintenance on the library directory: canonical
// renames, duplicate and corruption cleanup, and anonymization.
type Housekeeper struct {
	logger          *slog.Logger
	excludeChannels []string
}

// NewHousekeeper creates a housekeeper.
func NewHousekeeper(excludeChannels []string, logger *slog.Logger) *Housekeeper {
	return &Housekeeper{logger: logger, excludeChannels: excludeChannels}
}

// renameTimeLayout is the timestamp suffix of canonical filenames.
const renameTimeLayout = "2006-01-02_15-04-05"

func listEDFFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read library dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".edf") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// RenameFiles renames every EDF file in dir to the canonical
// "Name_Surname_YYYY-MM-DD_HH-MM-SS.edf" form derived from its header.
// Files already in canonical form are renamed to themselves, a no-op.
func (h *Housekeeper) RenameFiles(ctx context.Context, dir string) (int, error) {
	files, err := listEDFFiles(dir)
	if err != nil {
		return 0, err
	}

	renamed := 0
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return renamed, err
		}

		rec, err := edf.Open(path, edf.Options{ExcludeChannels: h.excludeChannels})
		if err != nil {
			h.logger.Warn("skipping unreadable file", "path", path, "error", err)
			continue
		}

		name := normalize.FileSafe(normalize.TitleCase(rec.Patient().Name))
		if name == "" {
			name = "Unknown"
		}
		base := name
		if start := rec.StartTime(); !start.IsZero() {
			base += "_" + start.Format(renameTimeLayout)
		}

		target := filepath.Join(dir, base+".edf")
		if target == path {
			continue
		}
		// Disambiguate collisions with a counter, like segment names.
		for counter := 1; exists(target); counter++ {
			target = filepath.Join(dir, fmt.Sprintf("%s_%d.edf", base, counter))
		}

		if err := os.Rename(path, target); err != nil {
			h.logger.Error("rename failed", "path", path, "error", err)
			continue
		}
		renamed++
	}

	h.logger.Info("rename pass complete", "files", len(files), "renamed", renamed)
	return renamed, nil
}

// FindDuplicates groups files with identical content, keyed by hash.
// Files are only hashed when another file shares their size.
func (h *Housekeeper) FindDuplicates(ctx context.Context, dir string) (map[string][]string, error) {
	files, err := listEDFFiles(dir)
	if err != nil {
		return nil, err
	}

	bySize := make(map[int64][]string)
	for _, path := range files {
		info, err := os.Stat(path)
		if err != nil {
			h.logger.Warn("could not stat file", "path", path, "error", err)
			continue
		}
		bySize[info.Size()] = append(bySize[info.Size()], path)
	}

	byHash := make(map[string][]string)
	for _, group := range bySize {
		if len(group) < 2 {
			continue
		}
		for _, path := range group {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			sum, err := edf.Hash(path)
			if err != nil {
				h.logger.Warn("could not hash file", "path", path, "error", err)
				continue
			}
			byHash[sum] = append(byHash[sum], path)
		}
	}

	duplicates := make(map[string][]string)
	redundant := 0
	for sum, paths := range byHash {
		if len(paths) > 1 {
			sort.Strings(paths)
			duplicates[sum] = paths
			redundant += len(paths) - 1
		}
	}
	h.logger.Info("duplicate check complete",
		"groups", len(duplicates), "redundant_files", redundant)
	return duplicates, nil
}

// similarStartDelta is how close two recording starts must be for the
// files to be flagged as the same session.
const similarStartDelta = 10 * time.Minute

// FindSimilarStartTimes groups files whose recording start times fall
// within similarStartDelta of each other, a sign of split or re-exported
// sessions. Files with unreadable headers are skipped.
func (h *Housekeeper) FindSimilarStartTimes(ctx context.Context, dir string) ([][]string, error) {
	files, err := listEDFFiles(dir)
	if err != nil {
		return nil, err
	}

	type entry struct {
		at   time.Time
		path string
	}
	entries := make([]entry, 0, len(files))
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		at, err := edf.ReadStartTime(path)
		if err != nil {
			h.logger.Warn("skipping file with unreadable start stamp", "path", path, "error", err)
			continue
		}
		entries = append(entries, entry{at: at, path: path})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].at.Before(entries[j].at) })

	var groups [][]string
	var current []string
	for i, e := range entries {
		if i > 0 && e.at.Sub(entries[i-1].at) <= similarStartDelta {
			current = append(current, e.path)
			continue
		}
		if len(current) > 1 {
			groups = append(groups, current)
		}
		current = []string{e.path}
	}
	if len(current) > 1 {
		groups = append(groups, current)
	}

	if len(groups) > 0 {
		h.logger.Info("similar start times found", "groups", len(groups))
	}
	return groups, nil
}

// DeleteDuplicates removes all but the first file of every duplicate
// group and reports the number of files deleted and bytes reclaimed.
func (h *Housekeeper) DeleteDuplicates(duplicates map[string][]string) (deleted int, reclaimed int64) {
	for _, paths := range duplicates {
		for _, path := range paths[1:] {
			info, statErr := os.Stat(path)
			if err := os.Remove(path); err != nil {
				h.logger.Error("failed to delete duplicate", "path", path, "error", err)
				continue
			}
			deleted++
			if statErr == nil {
				reclaimed += info.Size()
			}
			h.logger.Info("deleted duplicate", "path", path)
		}
	}
	h.logger.Info("duplicate cleanup complete",
		"deleted", deleted, "reclaimed", humanize.Bytes(uint64(reclaimed)))
	return deleted, reclaimed
}

// RemoveCorrupted deletes files the EDF parser rejects and returns their
// paths. Read errors that are not corruption (permissions) leave the file
// in place.
func (h *Housekeeper) RemoveCorrupted(ctx context.Context, dir string) ([]string, error) {
	files, err := listEDFFiles(dir)
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		_, err := edf.Open(path, edf.Options{ExcludeChannels: h.excludeChannels})
		if err == nil || !errors.Is(err, errors.ErrCorruptFile) {
			continue
		}
		h.logger.Warn("corrupted file", "path", path, "error", err)
		if err := os.Remove(path); err != nil {
			h.logger.Error("failed to delete corrupted file", "path", path, "error", err)
			continue
		}
		removed = append(removed, path)
	}
	return removed, nil
}

// Anonymize replaces every file's name with a random six-digit code, both
// on disk and in the EDF patient header, and writes the old-to-new
// correspondence to name_mapping.csv in the directory. The header keeps
// the code, sex and birthdate subfields.
func (h *Housekeeper) Anonymize(ctx context.Context, dir string) (int, error) {
	files, err := listEDFFiles(dir)
	if err != nil {
		return 0, err
	}

	used := make(map[string]struct{}, len(files))
	type mapping struct{ oldName, newName string }
	var mappings []mapping

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return len(mappings), err
		}

		code := uniqueCode(used)
		target := filepath.Join(dir, code+".edf")

		if err := edf.RewritePatientName(path, code); err != nil {
			h.logger.Error("header rewrite failed", "path", path, "error", err)
			continue
		}
		if err := os.Rename(path, target); err != nil {
			h.logger.Error("rename failed", "path", path, "error", err)
			continue
		}
		mappings = append(mappings, mapping{oldName: filepath.Base(path), newName: code + ".edf"})
	}

	f, err := os.Create(filepath.Join(dir, "name_mapping.csv"))
	if err != nil {
		return len(mappings), fmt.Errorf("create name mapping: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write([]string{"Old Name", "New Name"}); err != nil {
		return len(mappings), err
	}
	for _, m := range mappings {
		if err := cw.Write([]string{m.oldName, m.newName}); err != nil {
			return len(mappings), err
		}
	}
	cw.Flush()
	return len(mappings), cw.Error()
}

// WritePatientTable writes a CSV of unique patients found in the
// directory: transliterated name, sex, and age at recording.
func (h *Housekeeper) WritePatientTable(ctx context.Context, dir string, w io.Writer) error {
	files, err := listEDFFiles(dir)
	if err != nil {
		return err
	}

	type row struct {
		name string
		sex  string
		age  string
	}
	seen := make(map[row]struct{})

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := edf.Open(path, edf.Options{ExcludeChannels: h.excludeChannels})
		if err != nil {
			h.logger.Warn("skipping unreadable file", "path", path, "error", err)
			continue
		}

		p := rec.Patient()
		r := row{
			name: normalize.Transliterate(normalize.TitleCase(p.Name)),
			sex:  string(parseSex(p.Sex)),
			age:  "Unknown",
		}
		if b, ok := p.Birthday(); ok && !rec.StartTime().IsZero() {
			subject := domain.Patient{Birthday: &b}
			if age := subject.AgeAt(rec.StartTime()); age >= 0 {
				r.age = fmt.Sprintf("%d", age)
			}
		}
		seen[r] = struct{}{}
	}

	rows := make([]row, 0, len(seen))
	for r := range seen {
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].name < rows[j].name })

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Patient Name", "Sex", "Age at Recording (years)"}); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.name, r.sex, r.age}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func uniqueCode(used map[string]struct{}) string {
	for {
		digits := make([]byte, 6)
		for i := range digits {
			digits[i] = byte('0' + rand.Intn(10))
		}
		code := string(digits)
		if _, taken := used[code]; !taken {
			used[code] = struct{}{}
			return code
		}
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
