package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrCorrupt is returned by Load when the file exists but cannot be decoded.
// Callers start with an empty registry in that case.
var ErrCorrupt = errors.New("corrupt source config")

// MarshalJSON encodes an entry as a two element array: ["id", true].
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{e.SourceID, e.Enabled})
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("source entry: want 2 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &e.SourceID); err != nil {
		return fmt.Errorf("source entry id: %w", err)
	}
	if err := json.Unmarshal(raw[1], &e.Enabled); err != nil {
		return fmt.Errorf("source entry enabled: %w", err)
	}
	return nil
}

type fileLayout struct {
	Sources []Entry `json:"sources"`
}

// Store persists registry entries as JSON at a fixed path. Only the event
// loop writes it; each Save replaces the whole file.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

// Load reads the stored entries. A missing file yields no entries and no
// error; an undecodable file yields no entries and ErrCorrupt.
func (s *Store) Load() ([]Entry, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var f fileLayout
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return f.Sources, nil
}

// Save writes entries to a temp file beside the target and renames it into
// place.
func (s *Store) Save(entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(fileLayout{Sources: entries}, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".config-*.json")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}
