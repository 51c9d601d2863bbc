package scanner

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileState is what a previous scan knew about one library file. A file
// whose size and mtime still match is skipped without rehashing.
type FileState struct {
	Size        int64  `yaml:"size"`
	ModTime     int64  `yaml:"mod_time"`
	Hash        string `yaml:"hash"`
	RecordingID string `yaml:"recording_id,omitempty"`
}

// State is the persisted scan state, keyed by library-relative path.
type State struct {
	Files map[string]FileState `yaml:"files"`
}

// LoadState reads the scan state file. A missing file yields an empty
// state, not an error.
func LoadState(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &State{Files: make(map[string]FileState)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read scan state: %w", err)
	}

	var s State
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scan state: %w", err)
	}
	if s.Files == nil {
		s.Files = make(map[string]FileState)
	}
	return &s, nil
}

// Save writes the state atomically via a temp file rename.
func (s *State) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal scan state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write scan state: %w", err)
	}
	return os.Rename(tmp, path)
}

// Unchanged reports whether a walked file matches its recorded state.
func (s *State) Unchanged(file WalkResult) bool {
	prev, ok := s.Files[file.RelPath]
	return ok && prev.Size == file.Size && prev.ModTime == file.ModTime
}

// Record remembers a successfully cataloged file.
func (s *State) Record(file WalkResult, hash, recordingID string) {
	s.Files[file.RelPath] = FileState{
		Size:        file.Size,
		ModTime:     file.ModTime,
		Hash:        hash,
		RecordingID: recordingID,
	}
}

// Forget drops state entries whose files no longer exist.
func (s *State) Forget(seen map[string]struct{}) []string {
	var removed []string
	for relPath := range s.Files {
		if _, ok := seen[relPath]; !ok {
			delete(s.Files, relPath)
			removed = append(removed, relPath)
		}
	}
	return removed
}
