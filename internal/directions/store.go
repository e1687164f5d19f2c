package directions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

// Store persists directions entries.
type Store interface {
	// Load returns every persisted entry.
	Load(ctx context.Context) (map[Key]Entry, error)

	// Put persists a single entry, replacing any previous value.
	Put(ctx context.Context, key Key, entry Entry) error
}

// FileStore keeps all entries in one JSON object keyed "{from}-{to}".
// The whole file is rewritten on every Put.
type FileStore struct {
	mu      sync.Mutex
	path    string
	entries map[Key]Entry
	logger  zerolog.Logger
}

// NewFileStore creates a store backed by path. The file is created on first Put.
func NewFileStore(path string, logger zerolog.Logger) *FileStore {
	return &FileStore{path: path, logger: logger}
}

// Load reads the file. A missing or unreadable file yields an empty set.
func (s *FileStore) Load(_ context.Context) (map[Key]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return nil, err
	}
	out := make(map[Key]Entry, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out, nil
}

func (s *FileStore) loadLocked() error {
	if s.entries != nil {
		return nil
	}
	s.entries = make(map[Key]Entry)

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.logger.Info().Str("path", s.path).Msg("no directions cache file, starting empty")
		return nil
	}
	if err != nil {
		return fmt.Errorf("read directions cache: %w", err)
	}

	var decoded map[Key]Entry
	if err := json.Unmarshal(data, &decoded); err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("directions cache unreadable, starting empty")
		return nil
	}
	s.entries = decoded
	return nil
}

// Put stores entry and rewrites the file.
func (s *FileStore) Put(_ context.Context, key Key, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return err
	}
	s.entries[key] = entry
	return s.writeLocked()
}

func (s *FileStore) writeLocked() error {
	data, err := json.MarshalIndent(s.entries, "", "    ")
	if err != nil {
		return fmt.Errorf("encode directions cache: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create cache dir: %w", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".directions-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write directions cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close directions cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace directions cache: %w", err)
	}
	return nil
}
