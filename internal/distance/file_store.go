package distance

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists a single matrix as JSON on disk.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the stored matrix. A missing file yields (nil, nil).
func (s *FileStore) Load() (*Matrix, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read distance cache: %w", err)
	}

	var m Matrix
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode distance cache: %w", err)
	}
	return &m, nil
}

// Save replaces the stored matrix.
func (s *FileStore) Save(m *Matrix) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode distance cache: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".distances-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write distance cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close distance cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace distance cache: %w", err)
	}
	return nil
}
