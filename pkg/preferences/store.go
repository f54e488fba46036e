package preferences

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
)

// Preferences is everything the viewer persists between runs.
type Preferences struct {
	DarkMode bool `toml:"dark_mode"`
}

// Store loads and saves preferences.
type Store interface {
	Load() (Preferences, error)
	Save(Preferences) error
}

// FileStore keeps preferences in a TOML file.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by path. The file is created on the
// first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path is the backing file.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the file. A missing file yields the defaults.
func (s *FileStore) Load() (Preferences, error) {
	var p Preferences
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return p, fmt.Errorf("failed to read preferences: %w", err)
	}
	if err := toml.Unmarshal(data, &p); err != nil {
		return Preferences{}, fmt.Errorf("failed to parse %s: %w", s.path, err)
	}
	return p, nil
}

// Save writes p to the file, creating its directory if needed.
func (s *FileStore) Save(p Preferences) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create preferences directory: %w", err)
	}

	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("failed to create preferences file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(p); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	return nil
}

// MemoryStore keeps preferences in memory.
type MemoryStore struct {
	mu    sync.Mutex
	prefs Preferences
	saves int
}

// Load implements Store.
func (s *MemoryStore) Load() (Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs, nil
}

// Save implements Store.
func (s *MemoryStore) Save(p Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs = p
	s.saves++
	return nil
}

// Saves counts calls to Save.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
